package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophcheck/internal/api"
	"github.com/dmitrijs2005/gophcheck/internal/client/client"
	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/dmitrijs2005/gophcheck/internal/phone"
)

// report prints err for the user and updates the cached state when the
// server reset the login.
func (a *App) report(err error) error {
	if errors.Is(err, client.ErrAborted) || errors.Is(err, client.ErrUnauthorized) {
		a.state = api.StateIdle
	}
	printlnFn("Error:", err.Error())
	return err
}

func (a *App) stepDone(state string) {
	a.state = state
	switch state {
	case api.StateAwaitingCode:
		printlnFn("A login code was sent. Enter it with: code <digits>")
	case api.StateAwaitingPassword:
		printlnFn("Two-step verification is on. Enter the password with: password")
	case api.StateAuthenticated:
		printlnFn("Logged in. Use 'check' to verify numbers.")
	default:
		printlnFn("State:", state)
	}
}

func (a *App) Login(ctx context.Context, args []string) error {
	var number string
	if len(args) > 0 {
		number = strings.Join(args, "")
	} else {
		var err error
		number, err = GetSimpleText(a.reader, "Enter the phone number in international format (e.g. +254712345678)", a.out)
		if err != nil {
			return a.report(err)
		}
	}

	state, err := a.client.BeginSession(ctx, number)
	if err != nil {
		return a.report(err)
	}
	a.stepDone(state)
	return nil
}

func (a *App) Code(ctx context.Context, args []string) error {
	var code string
	if len(args) > 0 {
		code = args[0]
	} else {
		var err error
		code, err = GetSimpleText(a.reader, "Enter the login code", a.out)
		if err != nil {
			return a.report(err)
		}
	}

	state, err := a.client.SubmitCode(ctx, code)
	if err != nil {
		return a.report(err)
	}
	a.stepDone(state)
	return nil
}

func (a *App) Password(ctx context.Context) error {
	pw, err := GetPassword("Enter two-step password", a.out)
	if err != nil {
		return a.report(err)
	}
	defer common.WipeByteArray(pw)

	state, err := a.client.SubmitPassword(ctx, string(pw))
	if err != nil {
		return a.report(err)
	}
	a.stepDone(state)
	return nil
}

func (a *App) Abort(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	aborted, err := a.client.Abort(ctx)
	if err != nil {
		return a.report(err)
	}
	a.state = api.StateIdle
	if aborted {
		printlnFn("Login cancelled.")
	} else {
		printlnFn("No login in progress.")
	}
	return nil
}

func (a *App) State(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	st, err := a.client.State(ctx)
	if err != nil {
		return a.report(err)
	}
	a.state = st.State

	switch st.State {
	case api.StateAwaitingCode:
		printlnFn(fmt.Sprintf("Waiting for the code sent to %s (%d failed attempt(s)).", st.Phone, st.CodeAttempts))
	case api.StateAwaitingPassword:
		printlnFn(fmt.Sprintf("Waiting for the two-step password of %s (%d failed attempt(s)).", st.Phone, st.PasswordTries))
	case api.StateAwaitingPhone:
		printlnFn("Requesting a login code...")
	default:
		printlnFn("No login in progress.")
	}
	if st.LastExpiredIn != "" {
		printlnFn("The previous login timed out while", strings.ReplaceAll(st.LastExpiredIn, "_", " ")+".")
	}
	return nil
}

// collectNumbers returns args, or prompts for a pasted list when args is
// empty.
func (a *App) collectNumbers(args []string) ([]string, error) {
	text := strings.Join(args, " ")
	if text == "" {
		var err error
		text, err = GetMultiline(a.reader, "Paste the numbers to check (separated by commas, spaces or new lines)", a.out)
		if err != nil {
			return nil, err
		}
	}
	return phone.SplitList(text), nil
}

func (a *App) Check(ctx context.Context, args []string) error {
	numbers, err := a.collectNumbers(args)
	if err != nil {
		return a.report(err)
	}
	if len(numbers) == 0 {
		printlnFn("Nothing to check.")
		return nil
	}

	printlnFn(fmt.Sprintf("Checking %d number(s)...", len(numbers)))
	res, err := a.client.Verify(ctx, numbers, func(done, total int) {
		printlnFn(fmt.Sprintf("  batch %d/%d done", done, total))
	})
	if err != nil {
		if res != nil {
			printlnFn("Partial result:")
			printResult(res)
		}
		return a.report(err)
	}

	printResult(res)
	if res.Revoked {
		a.state = api.StateIdle
	}
	return nil
}

func printResult(res *api.VerifyResult) {
	printList("Registered", res.Registered)
	printList("Not registered", res.Unregistered)
	if len(res.Failed) > 0 {
		printList("Could not be checked (not charged)", res.Failed)
	}
	if len(res.Skipped) > 0 {
		printList("Skipped (check limit)", res.Skipped)
	}
	printlnFn(fmt.Sprintf("Checks used: %d, remaining: %d", res.ChecksDone, res.Remaining))
	if res.Revoked {
		printlnFn("Check limit reached. The platform session was closed; log in again to continue.")
	}
}

func printList(title string, items []string) {
	printlnFn(fmt.Sprintf("%s (%d):", title, len(items)))
	for _, it := range items {
		printlnFn("  " + it)
	}
}

// Clean prints the list normalized and deduplicated, without contacting
// the server.
func (a *App) Clean(args []string) error {
	numbers, err := a.collectNumbers(args)
	if err != nil {
		return a.report(err)
	}
	cleaned := phone.Clean(numbers)
	printlnFn(fmt.Sprintf("%d of %d entries kept:", len(cleaned), len(numbers)))
	printlnFn(strings.Join(cleaned, "\n"))
	return nil
}

func (a *App) Status(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	st, err := a.client.Status(ctx)
	if err != nil {
		return a.report(err)
	}
	printlnFn(fmt.Sprintf("Checks used: %d of %d, remaining: %d (%d%% left)", st.ChecksDone, st.Limit, st.Remaining, st.PercentLeft))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	res, err := a.client.Logout(ctx)
	if err != nil {
		return a.report(err)
	}
	a.state = api.StateIdle
	if res.HadCredential {
		printlnFn(fmt.Sprintf("Logged out after %d check(s).", res.ChecksDone))
	} else {
		printlnFn("No active session.")
	}
	return nil
}
