package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/njyeung/comentario/backend"
)

// Login authenticates with email and password, stores the token and
// reloads the page
func (e *Engine) Login(ctx context.Context, email, password string) error {
	e.clearPanel()

	res, err := e.backend.Login(ctx, email, password)
	if err != nil {
		return e.fail(fmt.Errorf("logging in: %w", err))
	}
	if err := e.tokens.Save(res.Token); err != nil {
		return e.fail(fmt.Errorf("saving login: %w", err))
	}
	e.logger.Info("logged in", "email", res.Email)
	return e.Reload(ctx)
}

// Signup registers a new account and then logs into it
func (e *Engine) Signup(ctx context.Context, req backend.SignupRequest) error {
	e.clearPanel()

	if err := e.backend.Signup(ctx, req); err != nil {
		return e.fail(fmt.Errorf("signing up: %w", err))
	}
	e.logger.Info("signed up", "email", req.Email)
	return e.Login(ctx, req.Email, req.Password)
}

// LoginOAuth binds a fresh token through the provider's login window.
// It waits until the window is closed, then reloads; whether the login
// succeeded is read from Authenticated afterwards.
func (e *Engine) LoginOAuth(ctx context.Context, provider string) error {
	e.clearPanel()

	if e.popup == nil {
		return e.fail(backend.ErrPopupBlocked)
	}

	token, err := e.backend.NewOAuthToken(ctx)
	if err != nil {
		return e.fail(fmt.Errorf("starting %s login: %w", provider, err))
	}
	if err := e.tokens.Save(token); err != nil {
		return e.fail(fmt.Errorf("saving login: %w", err))
	}

	win, err := e.popup.Open(ctx, e.backend.OAuthURL(provider, token))
	if err != nil {
		return e.fail(fmt.Errorf("opening %s login: %w", provider, err))
	}

	if err := e.waitClosed(ctx, win); err != nil {
		return e.fail(err)
	}
	e.logger.Info("oauth window closed", "provider", provider)
	return e.Reload(ctx)
}

func (e *Engine) waitClosed(ctx context.Context, win backend.PopupWindow) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			win.Close()
			return ctx.Err()
		case <-ticker.C:
			if win.Closed() {
				return nil
			}
		}
	}
}

// Logout ends the session. The local token is dropped even if the
// server call fails.
func (e *Engine) Logout(ctx context.Context) error {
	e.clearPanel()

	token := e.token()
	var logoutErr error
	if token != backend.AnonymousToken {
		logoutErr = e.backend.Logout(ctx, token)
		if logoutErr != nil {
			e.logger.Warn("server logout failed", "err", logoutErr)
		}
	}
	if err := e.tokens.Save(backend.AnonymousToken); err != nil {
		return e.fail(fmt.Errorf("clearing login: %w", err))
	}

	e.mu.Lock()
	e.self, e.email = nil, ""
	e.mu.Unlock()

	if err := e.Reload(ctx); err != nil {
		return err
	}
	if logoutErr != nil && !errors.Is(logoutErr, context.Canceled) {
		return fmt.Errorf("logging out: %w", logoutErr)
	}
	return nil
}
