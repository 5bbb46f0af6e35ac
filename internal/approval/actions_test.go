package approval_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/internal/approval"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// FakeService implements approval.ServiceAPI with overridable behavior.
type FakeService struct {
	approveFn func(id string) (*approval.Approval, error)
	rejectFn  func(id string, reason *string) (*approval.Approval, error)
	resetFn   func(id string) (*approval.Approval, error)
	getFn     func(id string) (*approval.Approval, error)
	listFn    func(status, period string) ([]*approval.Approval, error)
	statsFn   func() (*approval.Stats, error)

	listCalls  int
	statsCalls int
}

func (f *FakeService) Approve(ctx context.Context, id string) (*approval.Approval, error) {
	return f.approveFn(id)
}

func (f *FakeService) Reject(ctx context.Context, id string, reason *string) (*approval.Approval, error) {
	return f.rejectFn(id, reason)
}

func (f *FakeService) ResetToPending(ctx context.Context, id string) (*approval.Approval, error) {
	return f.resetFn(id)
}

func (f *FakeService) Get(ctx context.Context, id string) (*approval.Approval, error) {
	return f.getFn(id)
}

func (f *FakeService) ListApprovals(ctx context.Context, status, period string) ([]*approval.Approval, error) {
	f.listCalls++
	return f.listFn(status, period)
}

func (f *FakeService) GetApprovalStats(ctx context.Context) (*approval.Stats, error) {
	f.statsCalls++
	return f.statsFn()
}

var _ = Describe("Actions", func() {
	var (
		fake    *FakeService
		actions *approval.Actions
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &FakeService{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		actions = approval.NewActions(fake, logger)
	})

	It("wraps a successful approval", func() {
		fake.approveFn = func(id string) (*approval.Approval, error) {
			return &approval.Approval{ID: id, Status: approval.StatusApproved}, nil
		}

		res := actions.Approve(ctx, "a-1")
		Expect(res.Success).To(BeTrue())
		Expect(res.Error).To(BeEmpty())
		Expect(res.Data.Status).To(Equal(approval.StatusApproved))
	})

	It("turns typed errors into their localized message", func() {
		fake.approveFn = func(id string) (*approval.Approval, error) {
			return nil, internal.ErrApprovalNotFound
		}

		res := actions.Approve(ctx, "a-1")
		Expect(res.Success).To(BeFalse())
		Expect(res.Data).To(BeNil())
		Expect(res.Error).To(Equal(internal.ErrApprovalNotFound.Message))
		Expect(errors.Is(res.Err, internal.ErrApprovalNotFound)).To(BeTrue())
	})

	It("hides untyped errors behind a generic message", func() {
		fake.resetFn = func(id string) (*approval.Approval, error) {
			return nil, errors.New("pq: relation does not exist")
		}

		res := actions.Reset(ctx, "a-1")
		Expect(res.Success).To(BeFalse())
		Expect(res.Error).To(Equal("Terjadi kesalahan pada server"))
	})

	It("recovers from panics", func() {
		fake.rejectFn = func(id string, reason *string) (*approval.Approval, error) {
			panic("nil map write")
		}

		var res approval.Result[*approval.Approval]
		Expect(func() { res = actions.Reject(ctx, "a-1", nil) }).NotTo(Panic())
		Expect(res.Success).To(BeFalse())
		Expect(res.Error).To(Equal("Terjadi kesalahan pada server"))
		appErr, ok := internal.IsAppError(res.Err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
	})

	It("passes the reject reason through", func() {
		var got *string
		fake.rejectFn = func(id string, reason *string) (*approval.Approval, error) {
			got = reason
			return &approval.Approval{ID: id, Status: approval.StatusRejected, RejectionReason: reason}, nil
		}
		reason := "Data ganda"

		res := actions.Reject(ctx, "a-1", &reason)
		Expect(res.Success).To(BeTrue())
		Expect(got).To(Equal(&reason))
	})

	It("returns an empty list rather than null", func() {
		fake.listFn = func(status, period string) ([]*approval.Approval, error) {
			return nil, nil
		}

		res := actions.List(ctx, "all-all", "all")
		Expect(res.Success).To(BeTrue())
		Expect(res.Data).NotTo(BeNil())

		body, err := json.Marshal(res)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal(`{"success":true,"data":[]}`))
	})

	It("passes period and status in the service's order", func() {
		var gotStatus, gotPeriod string
		fake.listFn = func(status, period string) ([]*approval.Approval, error) {
			gotStatus, gotPeriod = status, period
			return []*approval.Approval{}, nil
		}

		actions.List(ctx, "2024-3", "PENDING")
		Expect(gotPeriod).To(Equal("2024-3"))
		Expect(gotStatus).To(Equal("PENDING"))
	})

	It("joins field messages of validation errors", func() {
		fake.getFn = func(id string) (*approval.Approval, error) {
			return nil, internal.NewValidationFieldError("id", "id bukan id yang valid", internal.ErrCodeValidationFailed)
		}

		res := actions.Get(ctx, "x")
		Expect(res.Error).To(Equal("id bukan id yang valid"))
	})

	It("wraps stats", func() {
		fake.statsFn = func() (*approval.Stats, error) {
			return &approval.Stats{Total: 4, Approved: 2, TotalAmount: 750000}, nil
		}

		res := actions.Stats(ctx)
		Expect(res.Success).To(BeTrue())
		Expect(res.Data.TotalAmount).To(Equal(int64(750000)))
	})
})
