/*
handlers.go - HTTP handlers for the LINE webhook and operations endpoints

PURPOSE:
  Receives LINE webhook deliveries, verifies them and hands the events to
  the bot dispatcher. Also exposes liveness/readiness probes and a small
  review API for pending leave requests.

ENDPOINTS:
  Webhook:
    GET    /webhook                      Platform verification probe ("OK")
    POST   /webhook                      Event delivery, always 200 {"success": bool}

  Operations:
    GET    /healthz                      Liveness ("OK")
    GET    /readyz                       Readiness, pings every dependency
    GET    /metrics                      Prometheus scrape

  Review:
    GET    /api/requests/pending         Requests awaiting review
    POST   /api/requests/{id}/approve    Approve a pending request
    POST   /api/requests/{id}/reject     Reject a pending request

  A review outcome is pushed to the applicant's bound LINE account in the
  background. Delivery failures are logged and counted; they never change
  the review response.

WEBHOOK CONTRACT:
  The platform retries non-2xx responses, so the webhook answers 200 even
  for malformed bodies or failed events and reports the outcome in the
  body. When a channel secret is configured, deliveries with a missing or
  wrong X-Line-Signature are dropped unprocessed.

SECURITY NOTE:
  The review endpoints carry no authentication; deploy them behind the
  company network or an authenticating proxy.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - bot/: Event processing
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/line"
	"github.com/warp/leavebot/metrics"
	"github.com/warp/leavebot/render"
	"github.com/warp/leavebot/store/sqlite"
)

// maxWebhookBody bounds the size of a single delivery.
const maxWebhookBody = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// EventHandler processes a batch of webhook events. bot.Dispatcher implements it.
type EventHandler interface {
	HandleEvents(ctx context.Context, events []line.Event) bool
}

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Pusher delivers messages outside a reply. line.Client implements it.
type Pusher interface {
	Push(ctx context.Context, to string, msgs ...line.Message) error
}

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	Bot           EventHandler
	ChannelSecret string
	Checks        map[string]Pinger
	Logger        *zap.Logger

	// Pusher sends review outcomes to applicants; nil disables them.
	Pusher        Pusher
	Location      *time.Location
	NotifyTimeout time.Duration
	Now           func() time.Time

	notices sync.WaitGroup
}

// NewHandler creates a handler. The store is always checked by /readyz.
func NewHandler(store *sqlite.Store, bot EventHandler, channelSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		Store:         store,
		Bot:           bot,
		ChannelSecret: channelSecret,
		Checks:        map[string]Pinger{"sqlite": store},
		Logger:        logger,
		Location:      time.UTC,
		NotifyTimeout: 10 * time.Second,
		Now:           time.Now,
	}
}

// Wait blocks until in-flight review notifications finish.
func (h *Handler) Wait() {
	h.notices.Wait()
}

// AddCheck registers another readiness dependency.
func (h *Handler) AddCheck(name string, p Pinger) {
	h.Checks[name] = p
}

// =============================================================================
// WEBHOOK
// =============================================================================

// WebhookProbe answers the platform's verification GET.
// GET /webhook
func (h *Handler) WebhookProbe(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

// Webhook processes an event delivery.
// POST /webhook
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.Logger.Warn("read webhook body", zap.Error(err))
		writeJSON(w, http.StatusOK, WebhookResponse{Success: false})
		return
	}

	if h.ChannelSecret != "" && !line.VerifySignature(h.ChannelSecret, body, r.Header.Get("X-Line-Signature")) {
		h.Logger.Warn("webhook signature mismatch", zap.String("remote", r.RemoteAddr))
		writeJSON(w, http.StatusOK, WebhookResponse{Success: false})
		return
	}

	var req line.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.Logger.Warn("malformed webhook body", zap.Error(err))
		writeJSON(w, http.StatusOK, WebhookResponse{Success: false})
		return
	}

	ok := h.Bot.HandleEvents(r.Context(), req.Events)
	writeJSON(w, http.StatusOK, WebhookResponse{Success: ok})
}

// =============================================================================
// PROBES
// =============================================================================

// Healthz reports liveness.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

// Readyz pings every registered dependency.
// GET /readyz
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	status := http.StatusOK
	for name, p := range h.Checks {
		if err := p.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// =============================================================================
// REVIEW
// =============================================================================

// ListPendingRequests returns every request awaiting review.
// GET /api/requests/pending
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requests, err := h.Store.PendingRequests(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pending requests", err)
		return
	}

	names := map[string]string{}
	dtos := make([]RequestDTO, 0, len(requests))
	for _, req := range requests {
		name, seen := names[req.AccountID]
		if !seen {
			if acc, _ := h.Store.GetAccount(ctx, req.AccountID); acc != nil {
				name = acc.Name
			}
			names[req.AccountID] = name
		}
		dtos = append(dtos, toRequestDTO(req, name))
	}

	writeJSON(w, http.StatusOK, map[string]any{"requests": dtos})
}

// ApproveRequest approves a pending request.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, leave.StatusApproved)
}

// RejectRequest rejects a pending request.
// POST /api/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, leave.StatusRejected)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, outcome leave.Status) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	request, err := h.Store.GetRequest(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get request", err)
		return
	}
	if request == nil {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return
	}
	if request.Status != leave.StatusPending {
		writeError(w, http.StatusConflict, "Request is not pending", nil)
		return
	}

	if err := h.Store.UpdateRequestStatus(ctx, id, outcome); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update request", err)
		return
	}

	h.Logger.Info("leave request reviewed",
		zap.String("id", id),
		zap.String("status", string(outcome)),
	)

	request.Status = outcome
	h.notifyApplicant(ctx, *request)

	writeJSON(w, http.StatusOK, ReviewResponse{ID: id, Status: string(outcome)})
}

// notifyApplicant pushes the review outcome to the applicant when their
// account is bound. It does not block the response; Wait drains it.
func (h *Handler) notifyApplicant(ctx context.Context, req leave.Request) {
	if h.Pusher == nil {
		return
	}
	acc, err := h.Store.GetAccount(ctx, req.AccountID)
	if err != nil {
		metrics.StatusNoticeFailuresTotal.Inc()
		h.Logger.Warn("load applicant for notice", zap.String("request", req.ID), zap.Error(err))
		return
	}
	if acc == nil || acc.LineUserID == "" {
		h.Logger.Debug("applicant not bound, skipping notice", zap.String("request", req.ID))
		return
	}

	daily := leave.Identity{DailyWorkHours: acc.DailyWorkHours}.DailyHours(0)
	msg := render.StatusUpdateNotice(req, daily, h.Now().In(h.Location))

	h.notices.Add(1)
	go func() {
		defer h.notices.Done()
		defer func() {
			if p := recover(); p != nil {
				metrics.StatusNoticeFailuresTotal.Inc()
				h.Logger.Error("status notice panicked", zap.String("panic", fmt.Sprint(p)))
			}
		}()

		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.NotifyTimeout)
		defer cancel()

		if err := h.Pusher.Push(pushCtx, acc.LineUserID, msg); err != nil {
			metrics.StatusNoticeFailuresTotal.Inc()
			h.Logger.Warn("status notice failed",
				zap.String("request", req.ID),
				zap.Error(err),
			)
		}
	}()
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, s)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
