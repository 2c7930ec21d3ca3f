package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Login(ctx context.Context, args []string) error
	Code(ctx context.Context, args []string) error
	Password(ctx context.Context) error
	Check(ctx context.Context, args []string) error
	Clean(args []string) error
	Status(ctx context.Context) error
	State(ctx context.Context) error
	Abort(ctx context.Context) error
	Logout(ctx context.Context) error
}

const helpText = `Available commands:
  login [phone]     start a platform login
  code [digits]     submit the login code
  password          submit the two-step password
  abort             cancel a login in progress
  state             show the login progress
  check [numbers]   check numbers (prompts for a list when none given)
  clean [numbers]   normalize and deduplicate a list without checking it
  status            show used and remaining checks
  logout            end the platform session
  exit | quit       leave the program`

// runREPL reads one command per line from reader and dispatches it to a.
// The loop exits on EOF, on "exit"/"quit" or when ctx is done. Handlers
// print their own errors, so returned errors are ignored here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("gc %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "login":
			_ = a.Login(ctx, args)

		case "code":
			_ = a.Code(ctx, args)

		case "password":
			_ = a.Password(ctx)

		case "abort":
			_ = a.Abort(ctx)

		case "state":
			_ = a.State(ctx)

		case "check":
			_ = a.Check(ctx, args)

		case "clean":
			_ = a.Clean(args)

		case "status":
			_ = a.Status(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
