package bot

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/render"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// parseBindEmail extracts an email from "user@x.com" or "綁定 user@x.com".
// The result is lowercased.
func parseBindEmail(text string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimSpace(strings.TrimPrefix(s, render.CommandBind))
	if !emailPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// handleUnbound runs the bind flow for a subject with no linked account.
// Leftover dialog state from a previous binding is dropped.
func (d *Dispatcher) handleUnbound(ctx context.Context, r *replier, subject, text string) error {
	if err := d.states.Clear(ctx, subject); err != nil {
		return err
	}

	email, ok := parseBindEmail(text)
	if !ok {
		return r.send(ctx, render.BindPrompt())
	}

	who, err := d.repo.BindSubject(ctx, email, subject)
	if errors.Is(err, leave.ErrNotFound) {
		return r.text(ctx, "bind.not_found")
	}
	if err != nil {
		return err
	}

	d.logger.Info("subject bound",
		zap.String("subject", subject),
		zap.String("account", who.AccountID),
	)
	return r.text(ctx, "bind.success")
}
