package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/leavebot/conversation"
	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/metrics"
	"github.com/warp/leavebot/render"
)

// draft builds the request described by a dialog payload. Unparseable dates
// leave zero times; submit rejects those.
func draft(who leave.Identity, p conversation.Payload, reason string) leave.Request {
	start, _ := leave.ParseDate(p.StartDate)
	end, _ := leave.ParseDate(p.EndDate)
	return leave.Request{
		AccountID: who.AccountID,
		LeaveType: p.LeaveType,
		StartDate: start,
		EndDate:   end,
		Reason:    reason,
		Status:    leave.StatusPending,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Hours:     p.Hours,
	}
}

// submit stores the request unless it overlaps an existing pending or
// approved one. The dialog ends either way. On success the reviewer is
// notified in the background.
func (d *Dispatcher) submit(ctx context.Context, r *replier, who leave.Identity, p conversation.Payload, reason string) error {
	req := draft(who, p, reason)
	if req.LeaveType == "" || req.StartDate.IsZero() || req.EndDate.IsZero() {
		if err := d.states.Clear(ctx, who.SubjectID); err != nil {
			return err
		}
		return r.text(ctx, "dialog.stale")
	}

	existing, err := d.repo.FindOverlapping(ctx, who.AccountID, req.StartDate, req.EndDate)
	if err != nil {
		return err
	}
	if existing != nil {
		metrics.SubmissionsTotal.WithLabelValues("overlap").Inc()
		d.logger.Info("submission rejected",
			zap.String("account", who.AccountID),
			zap.Error(&leave.OverlapError{Existing: *existing}),
		)
		if err := d.states.Clear(ctx, who.SubjectID); err != nil {
			return err
		}
		return r.text(ctx, "submit.overlap", map[string]any{
			"Type":  existing.LeaveType,
			"Start": leave.FormatDate(existing.StartDate),
			"End":   leave.FormatDate(existing.EndDate),
		})
	}

	stored, insertErr := d.repo.InsertRequest(ctx, req)
	if err := d.states.Clear(ctx, who.SubjectID); err != nil {
		// The request outcome stands; a leftover state expires with the TTL.
		d.logger.Warn("clear state after submit",
			zap.String("subject", who.SubjectID),
			zap.Error(err),
		)
	}
	if insertErr != nil {
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		d.logger.Error("insert leave request", zap.String("account", who.AccountID), zap.Error(insertErr))
		return r.text(ctx, "submit.failed", map[string]any{"Error": insertErr.Error()})
	}

	metrics.SubmissionsTotal.WithLabelValues("created").Inc()
	d.logger.Info("leave request created",
		zap.String("id", stored.ID),
		zap.String("account", who.AccountID),
		zap.String("type", stored.LeaveType),
		zap.String("dates", stored.DateLabel()),
	)

	replyErr := r.send(ctx, render.SubmitSuccess(stored, d.daily(who)))
	d.notifyReviewer(ctx, who, stored)
	return replyErr
}

// notifyReviewer pushes the reviewer notice without blocking the reply path.
// The push outlives the webhook request; Wait drains it.
func (d *Dispatcher) notifyReviewer(ctx context.Context, who leave.Identity, req leave.Request) {
	if d.cfg.NotifyTargetID == "" {
		return
	}

	d.notifies.Add(1)
	go func() {
		defer d.notifies.Done()
		defer func() {
			if p := recover(); p != nil {
				metrics.NotifyFailuresTotal.Inc()
				d.logger.Error("reviewer notification panicked", zap.String("panic", fmt.Sprint(p)))
			}
		}()

		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.NotifyTimeout)
		defer cancel()

		if err := d.messenger.Push(pushCtx, d.cfg.NotifyTargetID, render.ReviewerNotice(who, req)); err != nil {
			metrics.NotifyFailuresTotal.Inc()
			d.logger.Warn("reviewer notification failed",
				zap.String("request", req.ID),
				zap.Error(err),
			)
		}
	}()
}
