package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword and isTerminal are test seams for golang.org/x/term.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// Prompter asks for credentials on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func NewPrompter(in *os.File, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: int(in.Fd())}
}

// Username reads one line; the value is not trimmed beyond the line ending.
func (p *Prompter) Username() (string, error) {
	if _, err := fmt.Fprint(p.out, "Username: "); err != nil {
		return "", err
	}
	return p.readLine()
}

// Password reads without echo when attached to a terminal, otherwise one line of input.
func (p *Prompter) Password() (string, error) {
	if _, err := fmt.Fprint(p.out, "Password: "); err != nil {
		return "", err
	}
	if !isTerminal(p.fd) {
		return p.readLine()
	}
	pw, err := readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
