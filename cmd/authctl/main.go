package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"authgate/internal/client"
	"authgate/internal/config"
)

const usage = `usage: authctl <command>

commands:
  register   create an account
  login      log in and store the issued token
  token      print the stored token
  health     check the API is up`

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := client.New(cfg.Client.APIURL, client.Options{})
	if err != nil {
		logger.Fatalf("api client: %v", err)
	}
	prompt := client.NewPrompter(os.Stdin, os.Stdout)

	switch os.Args[1] {
	case "register":
		username, password := readCredentials(prompt, logger)
		msg, err := api.Register(ctx, username, password)
		if err != nil {
			logger.Fatal(err)
		}
		fmt.Println(msg)

	case "login":
		username, password := readCredentials(prompt, logger)
		token, err := api.Login(ctx, username, password)
		if err != nil {
			logger.Fatal(err)
		}
		if err := client.SaveToken(cfg.Client.TokenFile, token); err != nil {
			logger.Fatalf("store token: %v", err)
		}
		fmt.Printf("Logged in successfully, token saved to %s\n", cfg.Client.TokenFile)

	case "token":
		token, err := client.LoadToken(cfg.Client.TokenFile)
		if err != nil {
			logger.Fatal(err)
		}
		fmt.Println(token)

	case "health":
		status, err := api.Health(ctx)
		if err != nil {
			logger.Fatal(err)
		}
		fmt.Printf("%s: %s\n", cfg.Client.APIURL, status)

	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func readCredentials(prompt *client.Prompter, logger *logrus.Logger) (string, string) {
	username, err := prompt.Username()
	if err != nil {
		logger.Fatalf("read username: %v", err)
	}
	password, err := prompt.Password()
	if err != nil {
		logger.Fatalf("read password: %v", err)
	}
	return username, password
}
