package bot

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/leavebot/conversation"
	"github.com/warp/leavebot/i18n"
	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/line"
	"github.com/warp/leavebot/render"
)

// =============================================================================
// TEXT
// =============================================================================

// handleText routes free text from a bound caller.
func (d *Dispatcher) handleText(ctx context.Context, r *replier, who leave.Identity, text string) error {
	text = strings.TrimSpace(text)

	st, err := d.states.Get(ctx, who.SubjectID)
	if err != nil {
		return err
	}

	if text == render.CommandCancel {
		return d.cancel(ctx, r, who.SubjectID, st)
	}

	if st != nil {
		switch st.Step {
		case conversation.StepAwaitReason:
			return d.submit(ctx, r, who, st.Payload, text)
		case conversation.StepAwaitStartDate, conversation.StepAwaitEndDate:
			return d.dateText(ctx, r, who, st, text)
		case conversation.StepAwaitFullDay, conversation.StepAwaitStartTime, conversation.StepAwaitEndTime:
			return d.reprompt(ctx, r, who, st)
		}
	}

	return d.command(ctx, r, who, text)
}

func (d *Dispatcher) cancel(ctx context.Context, r *replier, subject string, st *conversation.State) error {
	if st == nil {
		return r.text(ctx, "dialog.nothing_in_progress")
	}
	if err := d.states.Clear(ctx, subject); err != nil {
		return err
	}
	return r.text(ctx, "dialog.cancelled")
}

// dateInput matches "2026-03-01", "2026-03-01~2026-03-03" and either form
// followed by an inline reason.
var dateInput = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:\s*[~～\-至到]\s*(\d{4}-\d{2}-\d{2}))?(?:\s+(.+))?$`)

type typedDates struct {
	first  string
	second string
	reason string
}

func parseDateText(text string) (typedDates, bool) {
	m := dateInput.FindStringSubmatch(text)
	if m == nil {
		return typedDates{}, false
	}
	return typedDates{first: m[1], second: m[2], reason: strings.TrimSpace(m[3])}, true
}

// dateText handles typed dates while a date step is open. A single start date
// advances to the end date; a range, or any date in await_end_date, completes
// the window. An inline reason submits a full-day request right away.
func (d *Dispatcher) dateText(ctx context.Context, r *replier, who leave.Identity, st *conversation.State, text string) error {
	in, ok := parseDateText(text)
	if !ok {
		return r.text(ctx, "dialog.invalid_date")
	}
	first, err := leave.ParseDate(in.first)
	if err != nil {
		return r.text(ctx, "dialog.invalid_date")
	}
	last := first
	if in.second != "" {
		if last, err = leave.ParseDate(in.second); err != nil {
			return r.text(ctx, "dialog.invalid_date")
		}
	}

	p := st.Payload
	start := first
	switch st.Step {
	case conversation.StepAwaitStartDate:
		if in.second == "" && in.reason == "" {
			return d.acceptStartDate(ctx, r, who, p, in.first)
		}
	case conversation.StepAwaitEndDate:
		if p.StartDate != "" {
			if start, err = leave.ParseDate(p.StartDate); err != nil {
				return r.text(ctx, "dialog.invalid_date")
			}
		}
	}

	if last.Before(start) {
		return r.text(ctx, "dialog.end_before_start", map[string]any{"Start": leave.FormatDate(start)})
	}

	p.StartDate = leave.FormatDate(start)
	p.EndDate = leave.FormatDate(last)
	if in.reason != "" {
		p = d.fullDayPayload(who, p, start, last)
		return d.submit(ctx, r, who, p, in.reason)
	}

	if err := d.states.Set(ctx, who.SubjectID, conversation.StepAwaitFullDay, p); err != nil {
		return err
	}
	return r.send(ctx, render.FullDayPrompt(p.LeaveType, start, last))
}

// reprompt re-sends the prompt of a step that expects a button, not text.
func (d *Dispatcher) reprompt(ctx context.Context, r *replier, who leave.Identity, st *conversation.State) error {
	switch st.Step {
	case conversation.StepAwaitStartTime:
		return r.send(ctx, render.TimePrompt(render.TimeStart, "", true, d.slots(who)))
	case conversation.StepAwaitEndTime:
		return r.send(ctx, d.endTimePrompt(who, st.Payload))
	}

	start, err1 := leave.ParseDate(st.Payload.StartDate)
	end, err2 := leave.ParseDate(st.Payload.EndDate)
	if err1 != nil || err2 != nil {
		return r.text(ctx, "dialog.stale")
	}
	return r.send(ctx, render.FullDayPrompt(st.Payload.LeaveType, start, end))
}

// =============================================================================
// POSTBACK
// =============================================================================

// handlePostback decodes the action and applies it. Dialog actions must match
// the caller's current step; anything else is a stale card and the state is
// left as is.
func (d *Dispatcher) handlePostback(ctx context.Context, r *replier, who leave.Identity, pb *line.Postback) error {
	action, err := conversation.Decode(pb.Data, conversation.Params{Date: pb.Params.Date, Time: pb.Params.Time})
	if err != nil {
		d.logger.Warn("undecodable postback", zap.String("data", pb.Data), zap.Error(err))
		return r.text(ctx, "dialog.stale")
	}

	switch a := action.(type) {
	case conversation.Cancel:
		st, err := d.states.Get(ctx, who.SubjectID)
		if err != nil {
			return err
		}
		return d.cancel(ctx, r, who.SubjectID, st)
	case conversation.ShowAllBalance:
		return d.balance(ctx, r, who, true)
	case conversation.ShowOtherTypes:
		return d.leaveTypes(ctx, r, who, a.Offset, true)
	case conversation.SelectLeave:
		return d.selectLeave(ctx, r, who, a.Type)
	}

	st, err := d.states.Get(ctx, who.SubjectID)
	if err != nil {
		return err
	}
	want, _ := conversation.ExpectedStep(action)
	if st == nil || st.Step != want {
		return r.text(ctx, "dialog.stale")
	}

	switch a := action.(type) {
	case conversation.PickStartDate:
		return d.acceptStartDate(ctx, r, who, st.Payload, a.Date)
	case conversation.PickEndDate:
		return d.acceptEndDate(ctx, r, who, st.Payload, a.Date)
	case conversation.SameDay:
		return d.acceptEndDate(ctx, r, who, st.Payload, st.Payload.StartDate)
	case conversation.FullDay:
		return d.chooseFullDay(ctx, r, who, st.Payload)
	case conversation.PickTime:
		if err := d.states.Set(ctx, who.SubjectID, conversation.StepAwaitStartTime, st.Payload); err != nil {
			return err
		}
		return r.send(ctx, render.TimePrompt(render.TimeStart, "", true, d.slots(who)))
	case conversation.SetStartTime:
		return d.acceptStartTime(ctx, r, who, st.Payload, a.Time)
	case conversation.SetEndTime:
		return d.acceptEndTime(ctx, r, who, st.Payload, a.Time)
	case conversation.SkipReason:
		return d.submit(ctx, r, who, st.Payload, "")
	}
	return nil
}

// =============================================================================
// STEPS
// =============================================================================

func (d *Dispatcher) selectLeave(ctx context.Context, r *replier, who leave.Identity, leaveType string) error {
	policies, err := d.repo.ActivePolicies(ctx)
	if err != nil {
		return err
	}
	if !hasPolicy(policies, leaveType) {
		return r.text(ctx, "dialog.unknown_type", map[string]any{"Type": leaveType})
	}

	if err := d.states.Set(ctx, who.SubjectID, conversation.StepAwaitStartDate, conversation.Payload{LeaveType: leaveType}); err != nil {
		return err
	}
	return r.send(ctx, render.StartDatePrompt(leaveType, d.today()))
}

func hasPolicy(policies []leave.Policy, leaveType string) bool {
	for _, p := range policies {
		if p.LeaveType == leaveType {
			return true
		}
	}
	return false
}

func (d *Dispatcher) acceptStartDate(ctx context.Context, r *replier, who leave.Identity, p conversation.Payload, date string) error {
	if date == "" {
		return r.text(ctx, "dialog.missing_date")
	}
	start, err := leave.ParseDate(date)
	if err != nil {
		return r.text(ctx, "dialog.invalid_date")
	}

	p.StartDate = leave.FormatDate(start)
	p.EndDate = ""
	if err := d.states.Set(ctx, who.SubjectID, conversation.StepAwaitEndDate, p); err != nil {
		return err
	}
	return r.send(ctx, render.EndDatePrompt(p.LeaveType, start))
}

func (d *Dispatcher) acceptEndDate(ctx context.Context, r *replier, who leave.Identity, p conversation.Payload, date string) error {
	if date == "" {
		return r.text(ctx, "dialog.missing_date")
	}
	start, err := leave.ParseDate(p.StartDate)
	if err != nil {
		return r.text(ctx, "dialog.stale")
	}
	end, err := leave.ParseDate(date)
	if err != nil {
		return r.text(ctx, "dialog.invalid_date")
	}
	if end.Before(start) {
		return r.text(ctx, "dialog.end_before_start", map[string]any{"Start": p.StartDate})
	}

	p.EndDate = leave.FormatDate(end)
	if err := d.states.Set(ctx, who.SubjectID, conversation.StepAwaitFullDay, p); err != nil {
		return err
	}
	return r.send(ctx, render.FullDayPrompt(p.LeaveType, start, end))
}

// fullDayPayload fills the working-day window and the whole-day hours.
func (d *Dispatcher) fullDayPayload(who leave.Identity, p conversation.Payload, start, end time.Time) conversation.Payload {
	sched := d.schedule(who)
	p.StartTime = sched.WorkStart
	p.EndTime = sched.End()
	p.Hours = decimal.NewNullDecimal(leave.FullDayHours(leave.InclusiveDays(start, end), d.daily(who)))
	return p
}

func (d *Dispatcher) chooseFullDay(ctx context.Context, r *replier, who leave.Identity, p conversation.Payload) error {
	start, err1 := leave.ParseDate(p.StartDate)
	end, err2 := leave.ParseDate(p.EndDate)
	if err1 != nil || err2 != nil {
		return r.text(ctx, "dialog.stale")
	}

	p = d.fullDayPayload(who, p, start, end)
	if err := d.states.Set(ctx, who.SubjectID, conversation.StepAwaitReason, p); err != nil {
		return err
	}
	return r.send(ctx, render.ReasonPrompt(draft(who, p, ""), d.daily(who)))
}

func (d *Dispatcher) acceptStartTime(ctx context.Context, r *replier, who leave.Identity, p conversation.Payload, clock string) error {
	if clock == "" {
		return r.text(ctx, "dialog.missing_time")
	}
	if _, err := leave.ParseClock(clock); err != nil {
		return r.send(ctx, render.TimePrompt(render.TimeStart, "", true, d.slots(who)))
	}

	p.StartTime = clock
	p.EndTime = ""
	p.Hours = decimal.NullDecimal{}
	if err := d.states.Set(ctx, who.SubjectID, conversation.StepAwaitEndTime, p); err != nil {
		return err
	}
	return r.send(ctx, d.endTimePrompt(who, p))
}

// endTimePrompt asks for the end time of p's window. Only a single-day window
// restricts the choices to times after the start.
func (d *Dispatcher) endTimePrompt(who leave.Identity, p conversation.Payload) line.Message {
	return render.TimePrompt(render.TimeEnd, p.StartTime, p.StartDate == p.EndDate, d.slots(who))
}

// acceptEndTime computes the window's hours. A window of zero or negative
// length asks for the end time again.
func (d *Dispatcher) acceptEndTime(ctx context.Context, r *replier, who leave.Identity, p conversation.Payload, clock string) error {
	if clock == "" {
		return r.text(ctx, "dialog.missing_time")
	}
	start, err1 := leave.ParseDate(p.StartDate)
	end, err2 := leave.ParseDate(p.EndDate)
	if err1 != nil || err2 != nil {
		return r.text(ctx, "dialog.stale")
	}

	hours, err := leave.LeaveHours(start, end, p.StartTime, clock, d.schedule(who))
	if err != nil || !hours.IsPositive() {
		return r.send(ctx,
			render.Text(i18n.T("dialog.zero_hours")),
			d.endTimePrompt(who, p),
		)
	}

	p.EndTime = clock
	p.Hours = decimal.NewNullDecimal(hours)
	if err := d.states.Set(ctx, who.SubjectID, conversation.StepAwaitReason, p); err != nil {
		return err
	}
	return r.send(ctx, render.ReasonPrompt(draft(who, p, ""), d.daily(who)))
}
