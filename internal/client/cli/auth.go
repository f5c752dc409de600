package cli

import (
	"context"
	"os"

	"github.com/aquemenida/caliope-ai-studio/internal/client/services"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for name, email and password and creates an account.
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter your name", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.session.Register(ctx, services.RegisterInput{Name: name, Email: email, Password: string(password)})
	if err != nil {
		return a.fail(err)
	}
	a.printf("Welcome, %s!\n", p.Name)
	return nil
}

// Login prompts for credentials and signs in with the configured backend.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.session.Login(ctx, email, string(password))
	if err != nil {
		a.logger.Info(ctx, "login unsuccessful", "error", err)
		return a.fail(err)
	}
	a.printf("Hello again, %s!\n", p.Name)
	return nil
}

// LoginGoogle prints the consent URL and waits for the redirect URL (or the
// bare code) to be pasted back. An empty answer cancels the flow.
func (a *App) LoginGoogle(ctx context.Context) error {
	state, err := common.MakeRandHexString(16)
	if err != nil {
		return err
	}
	url, err := a.session.FederatedLoginURL(state)
	if err != nil {
		return a.fail(err)
	}

	a.println("Open this address in your browser and sign in with Google:")
	a.println(url)
	callback, err := getSimpleText(a.reader, "Paste the address you were redirected to (empty to cancel)", os.Stdout)
	if err != nil {
		return err
	}

	p, err := a.session.LoginWithFederated(ctx, callback)
	if err != nil {
		return a.fail(err)
	}
	if p == nil {
		a.println("Sign-in cancelled.")
		return nil
	}
	a.printf("Hello, %s!\n", p.Name)
	return nil
}

// Demo switches to the demo profile. Nothing done in demo mode is saved.
func (a *App) Demo(ctx context.Context) error {
	p := a.session.StartDemoMode(ctx)
	a.printf("Demo mode: you are %s. Changes are not saved.\n", p.Name)
	return nil
}

// Logout ends the session and drops the chat history.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return a.fail(err)
	}
	if a.chat != nil {
		a.chat.Reset()
	}
	a.println("Signed out.")
	return nil
}

// restore resumes a remembered session at startup. It reports whether a
// profile is now loaded.
func (a *App) restore(ctx context.Context) bool {
	p, err := a.session.Restore(ctx)
	if err != nil {
		a.logger.Warn(ctx, "session restore failed", "error", err)
		return false
	}
	if p == nil {
		return false
	}
	a.printf("Welcome back, %s!\n", p.Name)
	return true
}
