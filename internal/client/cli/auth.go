package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/common"
)

func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := GetSimpleText(a.reader, "Enter name (optional)", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	u, err := a.api.Register(ctx, email, string(password), name)
	if err != nil {
		return err
	}
	a.email = u.Email
	a.threadID, a.threadTitle = "", ""
	if err := a.save(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered and logged in as", u.Email)
	return nil
}

// Login signs in with email and password, or with an access code when
// the server runs in code mode.
func (a *App) Login(ctx context.Context, withCode bool) error {
	if withCode {
		code, err := GetSecret(a.out, "Enter access code: ")
		if err != nil {
			return err
		}
		defer wipe(code)
		if err := a.api.LoginCode(ctx, string(code)); err != nil {
			return err
		}
	} else {
		email, err := GetSimpleText(a.reader, "Enter email", a.out)
		if err != nil {
			return err
		}
		password, err := GetPassword(a.out)
		if err != nil {
			return err
		}
		defer wipe(password)
		if err := a.api.Login(ctx, email, string(password)); err != nil {
			if errors.Is(err, common.ErrorForbidden) {
				return fmt.Errorf("%s (try /login code)", describe(err))
			}
			return err
		}
	}

	u, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	a.email = u.Email
	a.threadID, a.threadTitle = "", ""
	a.threads, a.attachments, a.pending = nil, nil, nil
	if err := a.save(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged in as", u.Email)
	return nil
}

// Logout always clears the local session, even if the server call fails.
func (a *App) Logout(ctx context.Context) error {
	apiErr := a.api.Logout(ctx)
	if err := a.forget(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	if apiErr != nil && !errors.Is(apiErr, common.ErrorUnauthorized) {
		return apiErr
	}
	return nil
}

func (a *App) Me(ctx context.Context) error {
	u, err := a.api.Me(ctx)
	if err != nil {
		return a.check(ctx, err)
	}
	name := "-"
	if u.Name != nil && *u.Name != "" {
		name = *u.Name
	}
	fmt.Fprintf(a.out, "Email:   %s\nName:    %s\nJoined:  %s\n", u.Email, name, u.CreatedAt.Local().Format("2006-01-02"))
	return nil
}
