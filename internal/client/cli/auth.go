package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
)

// Login signs in with the host identity when there is one, registering it on
// first use. Without an identity the user is asked for their Telegram
// details.
func (a *App) Login(ctx context.Context, _ []string) error {
	a.session.ClearError()

	if req, ok := a.identity(); ok {
		fmt.Fprintf(a.out, "Signing in as %s %s...\n", req.FirstName, req.LastName)
		if err := a.session.RegisterOrLogin(ctx, req); err != nil {
			return err
		}
		a.signedIn()
		return nil
	}

	id, err := a.askTelegramID()
	if err != nil {
		return err
	}
	first, err := GetSimpleText(a.reader, "First name", a.out)
	if err != nil {
		return err
	}
	last, err := GetSimpleText(a.reader, "Last name", a.out)
	if err != nil {
		return err
	}

	req := models.LoginRequest{TelegramUserID: id, FirstName: first, LastName: last}
	if err := a.session.Login(ctx, req); err != nil {
		return err
	}
	a.signedIn()
	return nil
}

// Register creates an account for the host identity, or for details entered
// at the prompt when the host has none.
func (a *App) Register(ctx context.Context, _ []string) error {
	a.session.ClearError()

	req, ok := a.identity()
	if !ok {
		id, err := a.askTelegramID()
		if err != nil {
			return err
		}
		req.TelegramUserID = id
		if req.FirstName, err = GetSimpleText(a.reader, "First name", a.out); err != nil {
			return err
		}
		if req.LastName, err = GetSimpleText(a.reader, "Last name", a.out); err != nil {
			return err
		}
		if req.Username, err = GetSimpleText(a.reader, "Username (optional)", a.out); err != nil {
			return err
		}
		if req.Email, err = GetSimpleText(a.reader, "Email (optional)", a.out); err != nil {
			return err
		}
	}

	if err := a.session.Register(ctx, req); err != nil {
		return err
	}
	a.signedIn()
	return nil
}

func (a *App) askTelegramID() (int64, error) {
	s, err := GetSimpleText(a.reader, "Telegram user ID", a.out)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid telegram user id %q", s)
	}
	return id, nil
}

func (a *App) signedIn() {
	if u := a.session.User(); u != nil {
		fmt.Fprintf(a.out, "Signed in as %s.\n", u.FullName())
	}
}

func (a *App) Logout(ctx context.Context, _ []string) error {
	if !a.session.HasToken() {
		fmt.Fprintln(a.out, "You are not signed in.")
		return nil
	}
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) WhoAmI(_ context.Context, _ []string) error {
	u := a.session.User()
	if u == nil || !a.session.HasToken() {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}

	fmt.Fprintf(a.out, "%s (telegram %d)\n", u.FullName(), u.TelegramUserID)
	if u.Username != "" {
		fmt.Fprintf(a.out, "Username: @%s\n", u.Username)
	}
	if u.IsAdmin() {
		fmt.Fprintln(a.out, "Role: admin")
	}
	if exp, ok := a.session.TokenExpiry(); ok {
		fmt.Fprintf(a.out, "Session expires: %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
