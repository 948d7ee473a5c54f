package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"authgate/internal/service"
)

// Handler wires HTTP routes to the user service.
type Handler struct {
	users       service.UserService
	logger      *logrus.Logger
	corsOrigins []string
}

func NewHandler(users service.UserService, logger *logrus.Logger, corsOrigins []string) *Handler {
	return &Handler{
		users:       users,
		logger:      logger,
		corsOrigins: corsOrigins,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(recoveryMiddleware(h.logger))
	router.Use(requestLogger(h.logger))
	router.Use(corsMiddleware(h.corsOrigins))

	router.GET("/health", h.health)
	router.POST("/register", h.register)
	router.POST("/login", h.login)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful POST /login.
type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// health does not probe the database; it only reports that the process is serving.
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	_, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": "User created successfully"})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username already exists"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error registering user", "error": err.Error()})
	}
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	res, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, LoginResponse{Token: res.Token, Message: "Logged in successfully"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in", "error": err.Error()})
	}
}
