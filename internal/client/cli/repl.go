package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	helpLines() []string
	Exec(ctx context.Context, name string, args []string) error
}

// runREPL starts a simple read-eval-print loop for the obyektivka CLI.
//
// It reads a line from reader, parses the first token as the command, and
// hands it to a.Exec. Unknown commands are reported back to the user. The
// loop exits on EOF, when ctx is done, or when the user types "exit" or
// "quit".
//
// The prompt shows the current status (from statusFn). "help" lists the
// commands the current session may run: the sign-in commands when logged
// out, the document and reference commands when logged in.
//
// Command errors are printed by Exec; the loop only reports unknown
// commands so it stays focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("oby [%s]> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help", "?":
			if a.isLoggedIn() {
				printlnFn("Available commands:")
			} else {
				printlnFn("Available commands (sign in to manage documents):")
			}
			for _, l := range a.helpLines() {
				printlnFn(l)
			}

		case "exit", "quit":
			printlnFn("Xayr!")
			return

		default:
			if err := a.Exec(ctx, cmd, parts[1:]); errors.Is(err, errUnknownCommand) {
				printlnFn("Unknown command:", cmd)
			}
		}
	}
}
