/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures returned by the HTTP surface. Webhook payloads
  themselves are modeled in package line.

NAMING CONVENTION:
  - *DTO: Resource representations returned to clients
  - *Response: Endpoint-specific wrappers

SEE ALSO:
  - handlers.go: Uses these types
  - line/webhook.go: Inbound webhook envelope
*/
package api

import (
	"time"

	"github.com/warp/leavebot/leave"
)

// WebhookResponse is the body of every POST /webhook answer.
type WebhookResponse struct {
	Success bool `json:"success"`
}

// HealthResponse is the readiness report.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"account_id"`
	EmployeeName string  `json:"employee_name"`
	LeaveType    string  `json:"leave_type"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	StartTime    string  `json:"start_time,omitempty"`
	EndTime      string  `json:"end_time,omitempty"`
	Hours        *string `json:"hours,omitempty"`
	Reason       string  `json:"reason"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
}

func toRequestDTO(r leave.Request, employeeName string) RequestDTO {
	dto := RequestDTO{
		ID:           r.ID,
		AccountID:    r.AccountID,
		EmployeeName: employeeName,
		LeaveType:    r.LeaveType,
		StartDate:    leave.FormatDate(r.StartDate),
		EndDate:      leave.FormatDate(r.EndDate),
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Reason:       r.Reason,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	if r.Hours.Valid {
		h := r.Hours.Decimal.String()
		dto.Hours = &h
	}
	if dto.EmployeeName == "" {
		dto.EmployeeName = r.AccountID
	}
	return dto
}

// ReviewResponse confirms a review decision.
type ReviewResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
