// Package console reads chat lines from a terminal and hands them to a node.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sender is the part of a node the console drives.
type Sender interface {
	SendLine(line string) error
}

// ErrQuit is returned by Run when the user typed a quit word.
var ErrQuit = errors.New("console: quit requested")

var quitWords = map[string]struct{}{
	"quit": {},
	"exit": {},
	"q":    {},
}

// IsQuit reports whether line asks the console to stop.
func IsQuit(line string) bool {
	_, ok := quitWords[strings.ToLower(strings.TrimSpace(line))]
	return ok
}

type Console struct {
	sender Sender
	in     io.Reader
	out    io.Writer
}

func New(sender Sender, in io.Reader, out io.Writer) *Console {
	return &Console{sender: sender, in: in, out: out}
}

func (c *Console) banner() {
	fmt.Fprintln(c.out, "Mesh console started. Type messages (or use @host:port for addressing):")
	fmt.Fprintln(c.out, "  hello world                  -> broadcast to all nodes")
	fmt.Fprintln(c.out, "  @127.0.0.1:9003 hello world  -> send only to 127.0.0.1:9003")
	fmt.Fprintln(c.out, "  Type 'quit' or 'exit' to stop")
	fmt.Fprintln(c.out)
}

// Run reads lines until ctx is done, the input ends or a quit word is typed.
// EOF and cancellation return nil; a quit word returns ErrQuit so the caller
// can shut the rest of the process down.
func (c *Console) Run(ctx context.Context) error {
	c.banner()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("failed to read console input: %w", err)
			}
			fmt.Fprintln(c.out, "Console stopped.")
			return nil
		case line := <-lines:
			if IsQuit(line) {
				fmt.Fprintln(c.out, "Console stopped.")
				return ErrQuit
			}
			c.handle(line)
		}
	}
}

func (c *Console) handle(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if err := c.sender.SendLine(line); err != nil {
		fmt.Fprintf(c.out, "Failed to send message: %v\n", err)
	}
}
