package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/internal/core/common/validation"
	"github.com/frahmantamala/lingkungan/internal/core/events"
	"github.com/frahmantamala/lingkungan/pkg/logger"
)

// Repository is the transactional store the engine reads and writes through.
type Repository interface {
	// WithinTx runs fn against a repository bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error

	// GetByID loads an approval with its contribution (and host household)
	// or its ledger entry attached. Returns internal.ErrApprovalNotFound.
	GetByID(ctx context.Context, id string) (*Approval, error)

	// UpdateStatus applies u only if the stored status still equals expected.
	// It reports whether a row was updated.
	UpdateStatus(ctx context.Context, id string, expected Status, u StatusUpdate) (bool, error)

	PostedCategories(ctx context.Context, approvalID string) (map[TransactionType]bool, error)
	CreateLedgerEntries(ctx context.Context, entries []*LedgerEntry) error
	DeletePostings(ctx context.Context, approvalID string) (int64, error)

	List(ctx context.Context, filter ListFilter) ([]*Approval, error)

	// YearBounds returns the smallest and largest calendar year found among
	// contribution and ledger dates, or zeros when both tables are empty.
	YearBounds(ctx context.Context) (minYear, maxYear int, err error)
}

type StatsReader interface {
	Stats(ctx context.Context, month DateRange) (*Stats, error)
}

type StatusUpdate struct {
	Status          Status
	RejectionReason *string
	ProcessedAt     time.Time
}

type ListFilter struct {
	Status StatusFilter
	// DateRestricted with an empty Ranges matches nothing.
	DateRestricted bool
	Ranges         []DateRange
}

type Stats struct {
	Total             int64 `json:"total" db:"total"`
	Pending           int64 `json:"pending" db:"pending"`
	Approved          int64 `json:"approved" db:"approved"`
	Rejected          int64 `json:"rejected" db:"rejected"`
	TotalAmount       int64 `json:"total_amount" db:"total_amount"`
	ThisMonthApproved int64 `json:"this_month_approved" db:"this_month_approved"`
	ThisMonthAmount   int64 `json:"this_month_amount" db:"this_month_amount"`
}

type ResetPolicy string

const (
	// ResetKeep leaves postings in place when an approval is reset.
	ResetKeep ResetPolicy = "keep"
	// ResetRetract deletes the approval's postings in the reset transaction.
	ResetRetract ResetPolicy = "retract"
)

func ParseResetPolicy(s string) (ResetPolicy, error) {
	switch ResetPolicy(s) {
	case "", ResetKeep:
		return ResetKeep, nil
	case ResetRetract:
		return ResetRetract, nil
	}
	return "", internal.NewValidationError(fmt.Sprintf("reset policy %q tidak dikenal", s), internal.ErrCodeInvalidResetPolicy)
}

type Service struct {
	repo        Repository
	stats       StatsReader
	publisher   events.Publisher
	logger      *slog.Logger
	loc         *time.Location
	resetPolicy ResetPolicy
	now         func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithResetPolicy(p ResetPolicy) Option {
	return func(s *Service) { s.resetPolicy = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, stats StatsReader, lg *slog.Logger, opts ...Option) *Service {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	s := &Service{
		repo:        repo,
		stats:       stats,
		logger:      lg,
		loc:         time.UTC,
		resetPolicy: ResetKeep,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Approve moves the approval to APPROVED and, when it wraps a contribution
// record, posts one ledger entry per positive sub-amount. Approving an
// approval that is already APPROVED changes nothing.
func (s *Service) Approve(ctx context.Context, id string) (*Approval, error) {
	return s.transition(ctx, id, ActionApprove, nil)
}

// Reject moves the approval to REJECTED. The ledger is never touched.
func (s *Service) Reject(ctx context.Context, id string, reason *string) (*Approval, error) {
	if verr := validation.ValidateRejectionReason(reason); verr != nil {
		return nil, verr
	}
	return s.transition(ctx, id, ActionReject, reason)
}

// ResetToPending moves the approval back to PENDING. Existing postings are
// kept or retracted according to the configured ResetPolicy.
func (s *Service) ResetToPending(ctx context.Context, id string) (*Approval, error) {
	return s.transition(ctx, id, ActionReset, nil)
}

type transitionOutcome struct {
	previous  Status
	changed   bool
	posted    int
	retracted int64
}

func (s *Service) transition(ctx context.Context, id string, action Action, reason *string) (*Approval, error) {
	lg := logger.From(ctx, s.logger).With("approval_id", id, "action", string(action))

	if verr := validation.ValidateApprovalID(id); verr != nil {
		lg.Warn("invalid approval id")
		return nil, verr
	}

	var (
		result  *Approval
		outcome transitionOutcome
	)

	err := s.repo.WithinTx(ctx, func(tx Repository) error {
		a, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return err
		}

		outcome.previous = a.Status
		next, err := a.Status.Transition(action)
		if err != nil {
			return err
		}

		if action == ActionApprove && a.Status == StatusApproved {
			result = a
			return nil
		}

		now := s.now()
		update := StatusUpdate{Status: next, ProcessedAt: now}
		if action == ActionReject {
			update.RejectionReason = reason
		}

		ok, err := tx.UpdateStatus(ctx, id, a.Status, update)
		if err != nil {
			return err
		}
		if !ok {
			return internal.ErrApprovalConflict
		}
		outcome.changed = true

		switch {
		case action == ActionApprove && a.ReferencesContribution():
			if a.DoaLingkungan == nil {
				return internal.ErrInvalidApprovalReference
			}
			already, err := tx.PostedCategories(ctx, id)
			if err != nil {
				return err
			}
			entries := BuildPostings(a.DoaLingkungan, id, already)
			if len(entries) > 0 {
				if err := tx.CreateLedgerEntries(ctx, entries); err != nil {
					return err
				}
			}
			outcome.posted = len(entries)

		case action == ActionReset && s.resetPolicy == ResetRetract:
			n, err := tx.DeletePostings(ctx, id)
			if err != nil {
				return err
			}
			outcome.retracted = n
		}

		a.Status = next
		a.RejectionReason = update.RejectionReason
		a.ProcessedAt = &now
		a.UpdatedAt = now
		result = a
		return nil
	})
	if err != nil {
		lg.Error("approval transition failed", "error", err)
		return nil, storeError(err)
	}

	if !outcome.changed {
		lg.Info("approval already approved, nothing posted")
		return result, nil
	}

	lg.Info("approval transition committed",
		"previous_status", string(outcome.previous),
		"status", string(result.Status),
		"posted_entries", outcome.posted,
		"retracted_entries", outcome.retracted)

	s.publishStatusChanged(ctx, lg, result, outcome)
	return result, nil
}

// publishStatusChanged runs after commit. Subscriber failures are logged and
// never undo the transition.
func (s *Service) publishStatusChanged(ctx context.Context, lg *slog.Logger, a *Approval, o transitionOutcome) {
	if s.publisher == nil {
		return
	}
	event := events.NewApprovalStatusChangedEvent(a.ID, string(o.previous), string(a.Status), o.posted, o.retracted, RoutePath)
	if err := s.publisher.PublishSync(ctx, event); err != nil {
		lg.Warn("approval status event handlers failed", "error", err)
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Approval, error) {
	if verr := validation.ValidateApprovalID(id); verr != nil {
		return nil, verr
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logger.From(ctx, s.logger).Error("failed to get approval", "error", err, "approval_id", id)
		return nil, storeError(err)
	}
	return a, nil
}

// ListApprovals returns approvals matching the status token ("all" or a
// status name) and the period token, newest first.
func (s *Service) ListApprovals(ctx context.Context, statusToken, periodToken string) ([]*Approval, error) {
	lg := logger.From(ctx, s.logger)

	status, err := ParseStatusFilter(statusToken)
	if err != nil {
		lg.Warn("invalid status filter", "status", statusToken)
		return nil, err
	}
	period, err := ParsePeriod(periodToken)
	if err != nil {
		lg.Warn("invalid period token", "period", periodToken)
		return nil, err
	}

	filter := ListFilter{Status: status}
	if period.Mode != PeriodAll {
		var minYear, maxYear int
		if period.NeedsYearBounds() {
			minYear, maxYear, err = s.repo.YearBounds(ctx)
			if err != nil {
				lg.Error("failed to load year bounds", "error", err)
				return nil, storeError(err)
			}
		}
		filter.DateRestricted = true
		filter.Ranges = period.Ranges(s.loc, minYear, maxYear)
	}

	approvals, err := s.repo.List(ctx, filter)
	if err != nil {
		lg.Error("failed to list approvals", "error", err, "period", period.String(), "status", statusToken)
		return nil, storeError(err)
	}
	return approvals, nil
}

// GetApprovalStats aggregates counts and approved amounts, overall and for
// approvals created in the current month.
func (s *Service) GetApprovalStats(ctx context.Context) (*Stats, error) {
	month := CurrentMonth(s.now(), s.loc)
	stats, err := s.stats.Stats(ctx, month)
	if err != nil {
		logger.From(ctx, s.logger).Error("failed to compute approval stats", "error", err)
		return nil, storeError(err)
	}
	return stats, nil
}

// storeError passes typed errors through and wraps everything else as a
// store failure.
func storeError(err error) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewStoreError("Gagal mengakses data, silakan coba lagi", err)
}
