package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeApprovalStatusChanged = "approval.status_changed"
)

// ApprovalStatusChangedEvent is emitted after a status transition has been
// committed, including the postings it produced or retracted.
type ApprovalStatusChangedEvent struct {
	BaseEvent
	ApprovalID       string `json:"approval_id"`
	PreviousStatus   string `json:"previous_status"`
	Status           string `json:"status"`
	PostedEntries    int    `json:"posted_entries"`
	RetractedEntries int64  `json:"retracted_entries"`
	RoutePath        string `json:"route_path"`
}

func NewApprovalStatusChangedEvent(approvalID, previous, status string, posted int, retracted int64, routePath string) *ApprovalStatusChangedEvent {
	return &ApprovalStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeApprovalStatusChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"approval_id":       approvalID,
				"previous_status":   previous,
				"status":            status,
				"posted_entries":    posted,
				"retracted_entries": retracted,
				"route_path":        routePath,
			},
		},
		ApprovalID:       approvalID,
		PreviousStatus:   previous,
		Status:           status,
		PostedEntries:    posted,
		RetractedEntries: retracted,
		RoutePath:        routePath,
	}
}
