package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// Terminal is the host used when the client runs in a plain shell.
type Terminal struct {
	identity

	mu          sync.Mutex
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	sink        Sink
}

// NewTerminal returns a Terminal reading answers from in and writing to out.
// When in is a file that is not a terminal, Confirm declines without asking.
// A nil sink means a FileSink in DefaultDownloadDir.
func NewTerminal(in io.Reader, out io.Writer, sink Sink, user *TelegramUser) *Terminal {
	if sink == nil {
		sink = FileSink{}
	}
	interactive := true
	if f, ok := in.(*os.File); ok {
		interactive = IsTerminal(f)
	}
	return &Terminal{
		identity:    identity{user: user},
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
		sink:        sink,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool { return isTerminal(int(f.Fd())) }

func (t *Terminal) Notify(_ context.Context, msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.out, msg)
	return err
}

func (t *Terminal) Confirm(ctx context.Context, msg string) (bool, error) {
	if !t.interactive {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := fmt.Fprint(t.out, msg+" [y/N]: "); err != nil {
		return false, err
	}
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "ha", "h":
		return true, nil
	default:
		return false, nil
	}
}

func (t *Terminal) Download(ctx context.Context, filename string, data []byte) (string, error) {
	loc, err := t.sink.Save(ctx, filename, data)
	if err != nil {
		return "", err
	}
	return loc, nil
}
