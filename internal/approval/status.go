package approval

import (
	"strings"

	"github.com/frahmantamala/lingkungan/internal"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionReset   Action = "reset"
)

// transitions lists, per action, the statuses it may start from. Every status
// may currently reach every other one; tightening a rule means removing an
// entry here.
var transitions = map[Action]map[Status]Status{
	ActionApprove: {
		StatusPending:  StatusApproved,
		StatusApproved: StatusApproved,
		StatusRejected: StatusApproved,
	},
	ActionReject: {
		StatusPending:  StatusRejected,
		StatusApproved: StatusRejected,
		StatusRejected: StatusRejected,
	},
	ActionReset: {
		StatusPending:  StatusPending,
		StatusApproved: StatusPending,
		StatusRejected: StatusPending,
	},
}

// Transition returns the status reached by applying a to s.
func (s Status) Transition(a Action) (Status, error) {
	next, ok := transitions[a][s]
	if !ok {
		return s, internal.ErrInvalidTransition
	}
	return next, nil
}

// StatusFilter is either a concrete Status or the empty value meaning "all".
type StatusFilter struct {
	Status Status
}

func (f StatusFilter) All() bool {
	return f.Status == ""
}

// ParseStatusFilter accepts "all" (or empty) and any status name in any case.
func ParseStatusFilter(token string) (StatusFilter, error) {
	token = strings.TrimSpace(token)
	if token == "" || strings.EqualFold(token, "all") {
		return StatusFilter{}, nil
	}
	s := Status(strings.ToUpper(token))
	if !s.IsValid() {
		return StatusFilter{}, internal.ErrInvalidStatusFilter
	}
	return StatusFilter{Status: s}, nil
}
