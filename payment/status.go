package payment

import "strings"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Normalize folds the gateway's status vocabulary into pending, completed,
// failed or cancelled. Anything unrecognised is still pending.
func Normalize(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "settled", "success", "successful", "completed", "paid", "approved":
		return StatusCompleted
	case "decline", "declined", "failed", "failure", "error":
		return StatusFailed
	case "cancel", "cancelled", "canceled", "void", "reversal", "refund", "expired":
		return StatusCancelled
	}
	return StatusPending
}

// Terminal reports whether polling can stop.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusCancelled
}
