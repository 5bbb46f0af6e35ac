package approval_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/internal/approval"
	"github.com/frahmantamala/lingkungan/internal/revalidate"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

var _ = Describe("Handler", func() {
	var (
		fake    *FakeService
		cache   *revalidate.ViewCache
		handler *approval.Handler
		router  *chi.Mux
	)

	do := func(method, target, body string) (*httptest.ResponseRecorder, envelope) {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, target, nil)
		} else {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var env envelope
		Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
		return rec, env
	}

	BeforeEach(func() {
		fake = &FakeService{
			listFn: func(status, period string) ([]*approval.Approval, error) {
				if period == "bad" {
					return nil, internal.ErrInvalidPeriod
				}
				return []*approval.Approval{{ID: "a-1", Status: approval.StatusPending}}, nil
			},
			statsFn: func() (*approval.Stats, error) {
				return &approval.Stats{Total: 1, Pending: 1}, nil
			},
			getFn: func(id string) (*approval.Approval, error) {
				return nil, internal.ErrApprovalNotFound
			},
			approveFn: func(id string) (*approval.Approval, error) {
				return &approval.Approval{ID: id, Status: approval.StatusApproved}, nil
			},
			rejectFn: func(id string, reason *string) (*approval.Approval, error) {
				return &approval.Approval{ID: id, Status: approval.StatusRejected, RejectionReason: reason}, nil
			},
			resetFn: func(id string) (*approval.Approval, error) {
				return nil, internal.ErrApprovalConflict
			},
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		cache = revalidate.NewViewCache(16, time.Minute)
		handler = approval.NewHandler(approval.NewActions(fake, logger), cache)

		router = chi.NewRouter()
		router.Get("/approvals", handler.ListApprovals)
		router.Get("/approvals/stats", handler.GetStats)
		router.Get("/approvals/{id}", handler.GetApproval)
		router.Patch("/approvals/{id}/approve", handler.ApproveApproval)
		router.Patch("/approvals/{id}/reject", handler.RejectApproval)
		router.Patch("/approvals/{id}/reset", handler.ResetApproval)
	})

	Describe("ListApprovals", func() {
		It("serves the list and caches it", func() {
			rec, env := do(http.MethodGet, "/approvals?period=2024-3&status=pending", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(env.Success).To(BeTrue())
			Expect(string(env.Data)).To(ContainSubstring(`"a-1"`))

			do(http.MethodGet, "/approvals?period=2024-3&status=PENDING", "")
			Expect(fake.listCalls).To(Equal(1))
			Expect(cache.Size()).To(Equal(1))
		})

		It("reloads after the route is invalidated", func() {
			do(http.MethodGet, "/approvals", "")
			Expect(cache.DeletePrefix(approval.RoutePath)).To(Equal(1))

			do(http.MethodGet, "/approvals", "")
			Expect(fake.listCalls).To(Equal(2))
		})

		It("does not cache failures", func() {
			rec, env := do(http.MethodGet, "/approvals?period=bad", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(env.Success).To(BeFalse())
			Expect(env.Error).To(Equal(internal.ErrInvalidPeriod.Message))

			do(http.MethodGet, "/approvals?period=bad", "")
			Expect(fake.listCalls).To(Equal(2))
			Expect(cache.Size()).To(BeZero())
		})
	})

	It("serves stats from the cache", func() {
		rec, env := do(http.MethodGet, "/approvals/stats", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(string(env.Data)).To(ContainSubstring(`"pending":1`))

		do(http.MethodGet, "/approvals/stats", "")
		Expect(fake.statsCalls).To(Equal(1))
	})

	It("maps not found to 404", func() {
		rec, env := do(http.MethodGet, "/approvals/0b7c9c1e-1d2f-4a57-9a43-5f1c2d3e4f50", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(env.Error).To(Equal(internal.ErrApprovalNotFound.Message))
	})

	It("approves", func() {
		rec, env := do(http.MethodPatch, "/approvals/a-1/approve", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(env.Success).To(BeTrue())
		Expect(string(env.Data)).To(ContainSubstring(`"APPROVED"`))
	})

	Describe("RejectApproval", func() {
		It("accepts a request without body", func() {
			rec, env := do(http.MethodPatch, "/approvals/a-1/reject", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(env.Success).To(BeTrue())
			Expect(string(env.Data)).NotTo(ContainSubstring("rejection_reason"))
		})

		It("trims the reason", func() {
			rec, env := do(http.MethodPatch, "/approvals/a-1/reject", `{"reason":"  Data ganda  "}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(string(env.Data)).To(ContainSubstring(`"rejection_reason":"Data ganda"`))
		})

		It("rejects malformed JSON", func() {
			rec, env := do(http.MethodPatch, "/approvals/a-1/reject", `{"reason":`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(env.Success).To(BeFalse())
			Expect(env.Error).To(Equal("Format permintaan tidak valid"))
		})
	})

	It("maps conflicts to 409", func() {
		rec, env := do(http.MethodPatch, "/approvals/a-1/reset", "")
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(env.Success).To(BeFalse())
	})

	It("maps untyped failures to 500", func() {
		fake.approveFn = func(id string) (*approval.Approval, error) {
			return nil, errors.New("boom")
		}
		rec, env := do(http.MethodPatch, "/approvals/a-1/approve", "")
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(env.Error).To(Equal("Terjadi kesalahan pada server"))
	})
})
