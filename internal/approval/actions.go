package approval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/pkg/logger"
)

const genericFailureMessage = "Terjadi kesalahan pada server"

// Result is the envelope every action returns. Success=false is the only
// reliable failure signal; Error carries a localized message.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

// ServiceAPI is what the action boundary needs from the engine.
type ServiceAPI interface {
	Approve(ctx context.Context, id string) (*Approval, error)
	Reject(ctx context.Context, id string, reason *string) (*Approval, error)
	ResetToPending(ctx context.Context, id string) (*Approval, error)
	Get(ctx context.Context, id string) (*Approval, error)
	ListApprovals(ctx context.Context, statusToken, periodToken string) ([]*Approval, error)
	GetApprovalStats(ctx context.Context) (*Stats, error)
}

// Actions is the inbound procedure surface. It never returns an error and
// never lets a panic escape.
type Actions struct {
	service ServiceAPI
	logger  *slog.Logger
}

func NewActions(service ServiceAPI, lg *slog.Logger) *Actions {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Actions{service: service, logger: lg}
}

func (a *Actions) Approve(ctx context.Context, id string) Result[*Approval] {
	return run(ctx, a.logger, "approve", func() (*Approval, error) {
		return a.service.Approve(ctx, id)
	})
}

func (a *Actions) Reject(ctx context.Context, id string, reason *string) Result[*Approval] {
	return run(ctx, a.logger, "reject", func() (*Approval, error) {
		return a.service.Reject(ctx, id, reason)
	})
}

func (a *Actions) Reset(ctx context.Context, id string) Result[*Approval] {
	return run(ctx, a.logger, "reset", func() (*Approval, error) {
		return a.service.ResetToPending(ctx, id)
	})
}

func (a *Actions) Get(ctx context.Context, id string) Result[*Approval] {
	return run(ctx, a.logger, "get", func() (*Approval, error) {
		return a.service.Get(ctx, id)
	})
}

func (a *Actions) List(ctx context.Context, periodToken, statusToken string) Result[[]*Approval] {
	return run(ctx, a.logger, "list", func() ([]*Approval, error) {
		list, err := a.service.ListApprovals(ctx, statusToken, periodToken)
		if list == nil && err == nil {
			list = []*Approval{}
		}
		return list, err
	})
}

func (a *Actions) Stats(ctx context.Context) Result[*Stats] {
	return run(ctx, a.logger, "stats", func() (*Stats, error) {
		return a.service.GetApprovalStats(ctx)
	})
}

func run[T any](ctx context.Context, lg *slog.Logger, action string, fn func() (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			logger.From(ctx, lg).Error("approval action panicked", "action", action, "panic", r)
			res = Result[T]{
				Error: genericFailureMessage,
				Err:   internal.NewInternalError(genericFailureMessage, fmt.Errorf("panic: %v", r)),
			}
		}
	}()

	data, err := fn()
	if err != nil {
		return Result[T]{Error: FailureMessage(err), Err: err}
	}
	return Result[T]{Success: true, Data: data}
}

// FailureMessage is the user-facing text for err.
func FailureMessage(err error) string {
	if appErr, ok := internal.IsAppError(err); ok && appErr.Message != "" {
		return appErr.GetDetailedMessage()
	}
	return genericFailureMessage
}
