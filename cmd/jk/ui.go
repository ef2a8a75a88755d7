package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/and161185/journal-keeper/internal/e2e"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/passwordstrength"
)

// readPassword prompts on the terminal without echo. Tests replace it.
var readPassword = func(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("cannot read password: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// newPassword asks twice and shows the strength of the first answer.
func newPassword(out io.Writer) (string, error) {
	pw, err := readPassword("New password: ")
	if err != nil {
		return "", err
	}
	fmt.Fprintln(out, "Strength:", strengthLabel(passwordstrength.Evaluate(pw)))
	again, err := readPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", errors.New("passwords do not match")
	}
	if pw == "" {
		return "", errors.New("empty password")
	}
	return pw, nil
}

// startSpinner shows progress on stderr during key derivation. It stays
// silent when stderr is not a terminal.
func startSpinner(message string) func() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

func strengthLabel(s passwordstrength.Score) string {
	switch s {
	case passwordstrength.VeryWeak, passwordstrength.Weak:
		return color.RedString(s.String())
	case passwordstrength.Fair:
		return color.YellowString(s.String())
	default:
		return color.GreenString(s.String())
	}
}

func ok(out io.Writer, format string, a ...any) {
	fmt.Fprintln(out, color.GreenString("✓")+" "+fmt.Sprintf(format, a...))
}

func warn(out io.Writer, format string, a ...any) {
	fmt.Fprintln(out, color.YellowString("!")+" "+fmt.Sprintf(format, a...))
}

// fail renders err with a hint for the errors a user can act on.
func fail(err error) string {
	msg := color.RedString("✗") + " " + err.Error()
	hint := ""
	var se *e2e.SyncError
	switch {
	case errors.As(err, &se):
		hint = "keys are saved on this device; the backend copy will be retried on the next restore"
	case errors.Is(err, errs.ErrNotUnlocked), errors.Is(err, errs.ErrKeyNotFound):
		hint = "run: jk signup, or jk restore on a new device"
	case errors.Is(err, errs.ErrAuthentication):
		hint = "wrong password"
	case errors.Is(err, errs.ErrUnauthorized):
		hint = "run: jk login --token <token>"
	case errors.Is(err, errs.ErrRateLimited):
		hint = "too many key fetches; try again later"
	}
	if hint == "" {
		return msg
	}
	return msg + "\n" + color.CyanString("→") + " " + strings.TrimSpace(hint)
}
