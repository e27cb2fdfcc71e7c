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
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context, withCode bool) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	Threads(ctx context.Context) error
	NewThread(ctx context.Context, title string) error
	Open(ctx context.Context, ref string) error
	History(ctx context.Context) error
	Settings(ctx context.Context) error
	Set(ctx context.Context, field, value string) error
	Attach(ctx context.Context, path string) error
	Transcribe(ctx context.Context, path string) error
	Download(ctx context.Context, ref string) error
	Send(ctx context.Context, text string) error
}

const (
	helpLoggedOut = "Commands: /register, /login, /login code, /help, /exit"
	helpLoggedIn  = `Type a message to chat. Commands:
  /threads              list threads
  /new [title]          start a thread
  /open <n|id>          switch to a thread and show it
  /history              show the current thread
  /attach <path>        attach a file to the next message
  /send                 send pending attachments without text
  /transcribe <path>    transcribe an audio file
  /download <n>         save attachment n of the current thread
  /settings             show personalization
  /set <field> [value]  change displayName, tone, instructions or model
  /me, /logout, /exit`
)

// runREPL reads lines until EOF or /exit. Lines starting with "/" are
// commands; anything else is sent to the current thread. Command errors
// are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gc %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			if !a.isLoggedIn() {
				printlnFn("Please /login first.")
				continue
			}
			report(a.Send(ctx, line))
			continue
		}

		parts := strings.Fields(line[1:])
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]
		rest := strings.TrimSpace(strings.TrimPrefix(line[1:], cmd))

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "register":
			report(a.Register(ctx))
			continue
		case "login":
			report(a.Login(ctx, len(args) > 0 && args[0] == "code"))
			continue
		}

		if !a.isLoggedIn() {
			if isKnown(cmd) {
				printlnFn("Please /login first.")
			} else {
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "logout":
			report(a.Logout(ctx))
		case "me":
			report(a.Me(ctx))
		case "threads", "t":
			report(a.Threads(ctx))
		case "new":
			report(a.NewThread(ctx, rest))
		case "open":
			report(a.Open(ctx, rest))
		case "history", "h":
			report(a.History(ctx))
		case "settings":
			report(a.Settings(ctx))
		case "set":
			if len(args) == 0 {
				printlnFn("Usage: /set <field> [value]")
				continue
			}
			report(a.Set(ctx, args[0], strings.TrimSpace(strings.TrimPrefix(rest, args[0]))))
		case "attach":
			report(a.Attach(ctx, rest))
		case "send":
			report(a.Send(ctx, ""))
		case "transcribe":
			report(a.Transcribe(ctx, rest))
		case "download":
			report(a.Download(ctx, rest))
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

var commands = map[string]struct{}{
	"logout": {}, "me": {}, "threads": {}, "t": {}, "new": {}, "open": {},
	"history": {}, "h": {}, "settings": {}, "set": {}, "attach": {},
	"send": {}, "transcribe": {}, "download": {},
}

func isKnown(cmd string) bool {
	_, ok := commands[cmd]
	return ok
}

func report(err error) {
	if err != nil {
		printlnFn("Error:", describe(err))
	}
}
