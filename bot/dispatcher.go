/*
Package bot is the command dispatcher and dialog state machine behind the
LINE webhook.

PURPOSE:
  Turns each webhook event into at most one reply. Free text is matched
  against a few keywords, postbacks are decoded into conversation.Action
  values, and the multi-step leave application is driven by a persisted
  conversation.State so that independent webhook deliveries continue the same
  dialog.

EVENT ORDER:
  1. Events without reply token or subject are skipped
  2. Identity lookup; unbound callers go to the bind flow
  3. Cancel (text or postback)
  4. Dialog step for the caller's live state
  5. Direct commands (apply, balance, detail, roster, help)

DIALOG:
  await_start_date -> await_end_date -> await_full_day
    -> await_reason                                   (full day)
    -> await_start_time -> await_end_time -> await_reason (time window)
    -> submit

FAILURE MODEL:
  Each event is isolated: an error or panic is logged, answered with a
  generic apology when the reply token is still unused, and reported through
  HandleEvents' result. Reviewer notifications run detached from the request
  and only log and count failures.

SEE ALSO:
  - conversation/: state, TTL, postback codec
  - render/: every message document sent from here
  - api/handlers.go: HTTP entry point
*/
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/leavebot/conversation"
	"github.com/warp/leavebot/i18n"
	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/line"
	"github.com/warp/leavebot/metrics"
	"github.com/warp/leavebot/render"
)

// Repository is the relational data the dispatcher reads and writes.
// store/sqlite.Store implements it.
type Repository interface {
	IdentityBySubject(ctx context.Context, subjectID string) (*leave.Identity, error)
	BindSubject(ctx context.Context, email, subjectID string) (*leave.Identity, error)
	ActivePolicies(ctx context.Context) ([]leave.Policy, error)
	AnnualLeaveRules(ctx context.Context) ([]leave.AnnualLeaveRule, error)
	FindOverlapping(ctx context.Context, accountID string, start, end time.Time) (*leave.Request, error)
	InsertRequest(ctx context.Context, r leave.Request) (leave.Request, error)
	RequestsInYear(ctx context.Context, accountID string, year int) ([]leave.Request, error)
	ApprovedInRange(ctx context.Context, from, to time.Time) ([]leave.RosterEntry, error)
}

// Messenger sends messages to the platform. line.Client implements it.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, msgs ...line.Message) error
	Push(ctx context.Context, to string, msgs ...line.Message) error
}

// Config tunes the dispatcher. Zero values fall back to the defaults.
type Config struct {
	DailyHours     int            // used when an account has no daily hours
	WorkStart      string         // "HH:MM"
	WorkEnd        string         // "HH:MM"
	NotifyTargetID string         // reviewer push target; empty disables notifications
	AppURL         string         // web front-end, linked from help
	Location       *time.Location // business time zone for "today"
	NotifyTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.DailyHours <= 0 {
		c.DailyHours = leave.DefaultDailyWorkHours
	}
	if c.WorkStart == "" {
		c.WorkStart = leave.DefaultWorkStart
	}
	if c.WorkEnd == "" {
		c.WorkEnd = leave.DefaultWorkEnd
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 10 * time.Second
	}
	return c
}

// Dispatcher handles webhook events. It keeps no per-user memory; everything
// between events lives in the state manager.
type Dispatcher struct {
	repo      Repository
	states    *conversation.Manager
	messenger Messenger
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time

	notifies sync.WaitGroup
}

// New creates a dispatcher.
func New(repo Repository, states *conversation.Manager, messenger Messenger, cfg Config, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		states:    states,
		messenger: messenger,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for "today", for tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Wait blocks until in-flight reviewer notifications finish.
func (d *Dispatcher) Wait() {
	d.notifies.Wait()
}

// =============================================================================
// EVENT LOOP
// =============================================================================

// HandleEvents processes a webhook batch in order. A failing event does not
// stop later ones; the result is false if any event failed.
func (d *Dispatcher) HandleEvents(ctx context.Context, events []line.Event) bool {
	ok := true
	for _, ev := range events {
		if err := d.HandleEvent(ctx, ev); err != nil {
			ok = false
		}
	}
	return ok
}

// HandleEvent processes one event. Errors and panics are logged and answered
// with a generic apology if nothing was replied yet.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev line.Event) (err error) {
	if ev.ReplyToken == "" || ev.Source.UserID == "" {
		metrics.EventsTotal.WithLabelValues(ev.Type, "skipped").Inc()
		return nil
	}

	r := &replier{messenger: d.messenger, token: ev.ReplyToken}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		if err == nil {
			metrics.EventsTotal.WithLabelValues(ev.Type, "ok").Inc()
			return
		}

		metrics.EventsTotal.WithLabelValues(ev.Type, "error").Inc()
		d.logger.Error("event failed",
			zap.String("type", ev.Type),
			zap.String("subject", ev.Source.UserID),
			zap.Error(err),
		)
		if !r.used {
			if rerr := r.send(ctx, render.Text(i18n.T("error.generic"))); rerr != nil {
				d.logger.Warn("apology reply failed", zap.Error(rerr))
			}
		}
	}()

	return d.route(ctx, r, ev)
}

func (d *Dispatcher) route(ctx context.Context, r *replier, ev line.Event) error {
	subject := ev.Source.UserID
	who, err := d.repo.IdentityBySubject(ctx, subject)
	if err != nil {
		return err
	}

	switch ev.Type {
	case line.EventFollow:
		if who == nil {
			return r.send(ctx, render.BindPrompt())
		}
		return r.send(ctx, render.Help(d.cfg.AppURL))

	case line.EventPostback:
		if ev.Postback == nil {
			return nil
		}
		if who == nil {
			if err := d.states.Clear(ctx, subject); err != nil {
				return err
			}
			return r.send(ctx, render.BindPrompt())
		}
		return d.handlePostback(ctx, r, *who, ev.Postback)

	case line.EventMessage:
		if ev.Message == nil || ev.Message.Type != "text" {
			return nil
		}
		if who == nil {
			return d.handleUnbound(ctx, r, subject, ev.Text())
		}
		return d.handleText(ctx, r, *who, ev.Text())
	}

	d.logger.Debug("ignored event", zap.String("type", ev.Type))
	return nil
}

// replier sends the single reply an event allows.
type replier struct {
	messenger Messenger
	token     string
	used      bool
}

func (r *replier) send(ctx context.Context, msgs ...line.Message) error {
	r.used = true
	if err := r.messenger.Reply(ctx, r.token, msgs...); err != nil {
		metrics.RepliesFailedTotal.Inc()
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

func (r *replier) text(ctx context.Context, id string, data ...map[string]any) error {
	return r.send(ctx, render.Text(i18n.T(id, data...)))
}

// =============================================================================
// HELPERS
// =============================================================================

func (d *Dispatcher) today() time.Time {
	return leave.DateOf(d.now().In(d.cfg.Location))
}

func (d *Dispatcher) daily(who leave.Identity) decimal.Decimal {
	return who.DailyHours(d.cfg.DailyHours)
}

// schedule is the caller's working day. The configured WorkEnd belongs to the
// configured daily hours; an account with its own daily hours ends its day at
// WorkStart + daily instead.
func (d *Dispatcher) schedule(who leave.Identity) leave.Schedule {
	sched := leave.Schedule{
		WorkStart: d.cfg.WorkStart,
		WorkEnd:   d.cfg.WorkEnd,
		Daily:     d.daily(who),
	}
	if !sched.Daily.Equal(decimal.NewFromInt(int64(d.cfg.DailyHours))) {
		sched.WorkEnd = ""
	}
	return sched
}

func (d *Dispatcher) slots(who leave.Identity) []string {
	sched := d.schedule(who)
	return render.HourlySlots(sched.WorkStart, sched.End())
}
