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
	Login(ctx context.Context) error
	LoginGoogle(ctx context.Context) error
	Demo(ctx context.Context) error
	Profile(ctx context.Context) error
	EditProfile(ctx context.Context) error
	SetGoal(ctx context.Context, args []string) error
	Services(ctx context.Context) error
	Chat(ctx context.Context, args []string) error
	Book(ctx context.Context, args []string) error
	Rate(ctx context.Context, args []string) error
	Journal(ctx context.Context) error
	Dashboard(ctx context.Context) error
	History(ctx context.Context) error
	Appointments(ctx context.Context) error
	Achievements(ctx context.Context) error
	Upgrade(ctx context.Context) error
	Users(ctx context.Context) error
	Stats(ctx context.Context) error
	Notifications(ctx context.Context) error
	Dismiss(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Experience(ctx context.Context, args []string) error
	Reset(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, google, demo, services, reset, exit"
	helpLoggedIn  = "Available commands: (d)ashboard, profile, edit, goal, services, chat, book, rate, journal, " +
		"history, appointments, achievements, upgrade, users, stats, (n)otifications, dismiss, xp, reset, logout, exit"
)

// runREPL starts the read-eval-print loop of the Caliope client.
//
// It reads a line from r, parses the first token as the command and passes
// the remaining tokens to commands that take arguments. The loop exits on
// EOF or when the user types "exit" or "quit". Commands that need a session
// are refused until the user is logged in (or in demo mode).
//
// Prompt & Commands
//
//	Not logged in:
//	  - register       create an account
//	  - login          sign in with email and password
//	  - google         sign in with Google
//	  - demo           explore with the demo profile; nothing is saved
//	  - reset          delete all local data after confirmation
//
//	Logged in:
//	  - dashboard | d  level, tip of the day and a personal suggestion
//	  - profile, edit, goal <id>
//	  - services       list the catalog
//	  - chat <text>    ask the assistant for recommendations
//	  - book <id>      book a service
//	  - rate <id> like|dislike
//	  - journal        add a visual journal entry
//	  - history, appointments, achievements, upgrade
//	  - users, stats   roster and statistics
//	  - notifications | n, dismiss <id>
//	  - xp [n]         add n experience points (100 by default)
//	  - logout
//
// Errors returned by command handlers are ignored here; handlers report
// their own failures to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("caliope %s> ", statusFn()))
		line, err := r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

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
			_ = a.Register(ctx)
			continue
		case "login":
			_ = a.Login(ctx)
			continue
		case "google":
			_ = a.LoginGoogle(ctx)
			continue
		case "demo":
			_ = a.Demo(ctx)
			continue
		case "services":
			_ = a.Services(ctx)
			continue
		case "reset":
			_ = a.Reset(ctx)
			continue
		}

		if !a.isLoggedIn() {
			if isSessionCommand(cmd) {
				printlnFn("Please log in first (or type 'demo').")
			} else {
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "d", "dashboard":
			_ = a.Dashboard(ctx)
		case "profile":
			_ = a.Profile(ctx)
		case "edit":
			_ = a.EditProfile(ctx)
		case "goal":
			_ = a.SetGoal(ctx, args)
		case "chat":
			_ = a.Chat(ctx, args)
		case "book":
			_ = a.Book(ctx, args)
		case "rate":
			_ = a.Rate(ctx, args)
		case "journal":
			_ = a.Journal(ctx)
		case "history":
			_ = a.History(ctx)
		case "appointments":
			_ = a.Appointments(ctx)
		case "achievements":
			_ = a.Achievements(ctx)
		case "upgrade":
			_ = a.Upgrade(ctx)
		case "users":
			_ = a.Users(ctx)
		case "stats":
			_ = a.Stats(ctx)
		case "n", "notifications":
			_ = a.Notifications(ctx)
		case "dismiss":
			_ = a.Dismiss(ctx, args)
		case "xp":
			_ = a.Experience(ctx, args)
		case "logout":
			_ = a.Logout(ctx)
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

var sessionCommands = map[string]bool{
	"d": true, "dashboard": true, "profile": true, "edit": true, "goal": true,
	"chat": true, "book": true, "rate": true, "journal": true, "history": true,
	"appointments": true, "achievements": true, "upgrade": true, "users": true,
	"stats": true, "n": true, "notifications": true, "dismiss": true, "xp": true, "logout": true,
}

func isSessionCommand(cmd string) bool {
	return sessionCommands[cmd]
}
