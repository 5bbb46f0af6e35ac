package approval_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/internal/approval"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Service", func() {
	var (
		repo      *MockRepository
		stats     *MockStatsReader
		publisher *RecordingPublisher
		service   *approval.Service
		ctx       context.Context
		logger    *slog.Logger
		now       time.Time
		tanggal   time.Time
	)

	newService := func(opts ...approval.Option) *approval.Service {
		base := []approval.Option{
			approval.WithPublisher(publisher),
			approval.WithClock(func() time.Time { return now }),
		}
		return approval.NewService(repo, stats, logger, append(base, opts...)...)
	}

	BeforeEach(func() {
		repo = NewMockRepository()
		stats = &MockStatsReader{stats: &approval.Stats{Total: 3, Pending: 1, Approved: 2}}
		publisher = &RecordingPublisher{}
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		now = time.Date(2024, time.January, 20, 9, 0, 0, 0, time.UTC)
		tanggal = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
		service = newService()
	})

	Describe("Approve", func() {
		It("posts three ledger entries for a full contribution", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 500000, 300000, 200000)

			result, err := service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(approval.StatusApproved))
			Expect(result.ProcessedAt).NotTo(BeNil())
			Expect(*result.ProcessedAt).To(Equal(now))
			Expect(repo.Status(a.ID)).To(Equal(approval.StatusApproved))

			entries := repo.EntriesFor(a.ID)
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Keterangan).To(Equal("Kolekte I - Doa Lingkungan 15/01/2024"))
			Expect(entries[0].Debit).To(Equal(int64(500000)))
			Expect(entries[1].Debit).To(Equal(int64(300000)))
			Expect(entries[2].Debit).To(Equal(int64(200000)))

			Expect(publisher.events).To(HaveLen(1))
			event := publisher.events[0]
			Expect(event.ApprovalID).To(Equal(a.ID))
			Expect(event.PreviousStatus).To(Equal(string(approval.StatusPending)))
			Expect(event.Status).To(Equal(string(approval.StatusApproved)))
			Expect(event.PostedEntries).To(Equal(3))
			Expect(event.RoutePath).To(Equal(approval.RoutePath))
		})

		It("skips zero sub-amounts", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 400000, 0, 100000)

			_, err := service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())

			entries := repo.EntriesFor(a.ID)
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].TipeTransaksi).To(Equal(approval.TypeKolekteI))
			Expect(entries[1].TipeTransaksi).To(Equal(approval.TypeSumbanganUmat))
		})

		It("is idempotent on an approved approval", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 500000, 300000, 200000)

			_, err := service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			result, err := service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(approval.StatusApproved))

			Expect(repo.EntriesFor(a.ID)).To(HaveLen(3))
			Expect(publisher.events).To(HaveLen(1))
		})

		It("approves a ledger-entry approval without posting", func() {
			a := repo.AddLedgerApproval(approval.StatusPending, tanggal)

			result, err := service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(approval.StatusApproved))
			Expect(repo.entries).To(BeEmpty())
			Expect(publisher.events).To(HaveLen(1))
			Expect(publisher.events[0].PostedEntries).To(BeZero())
		})

		It("approves a previously rejected approval", func() {
			a := repo.AddContributionApproval(approval.StatusRejected, tanggal, 100000, 0, 0)

			result, err := service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(approval.StatusApproved))
			Expect(repo.EntriesFor(a.ID)).To(HaveLen(1))
		})

		It("returns not found for an unknown id", func() {
			_, err := service.Approve(ctx, uuid.NewString())
			Expect(errors.Is(err, internal.ErrApprovalNotFound)).To(BeTrue())
			Expect(publisher.events).To(BeEmpty())
		})

		It("rejects a malformed id before touching the store", func() {
			repo.SetFailOn("GetByID", errors.New("should not be called"))

			_, err := service.Approve(ctx, "not-a-uuid")
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("refuses an approval with no reference", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 100000, 0, 0)
			a.DoaLingkunganID = nil

			_, err := service.Approve(ctx, a.ID)
			Expect(errors.Is(err, internal.ErrInvalidApprovalReference)).To(BeTrue())
			Expect(repo.Status(a.ID)).To(Equal(approval.StatusPending))
		})

		It("refuses an approval with both references", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 100000, 0, 0)
			kasID := uuid.NewString()
			a.KasLingkunganID = &kasID

			_, err := service.Approve(ctx, a.ID)
			Expect(errors.Is(err, internal.ErrInvalidApprovalReference)).To(BeTrue())
			Expect(repo.entries).To(BeEmpty())
		})

		It("reports a conflict when the status changed concurrently", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 100000, 0, 0)
			repo.forceConflict = true

			_, err := service.Approve(ctx, a.ID)
			Expect(errors.Is(err, internal.ErrApprovalConflict)).To(BeTrue())
			Expect(repo.entries).To(BeEmpty())
			Expect(publisher.events).To(BeEmpty())
		})

		It("rolls back the status change when posting fails", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 100000, 50000, 0)
			repo.SetFailOn("CreateLedgerEntries", errors.New("connection reset"))

			_, err := service.Approve(ctx, a.ID)
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeStoreFailure))

			Expect(repo.Status(a.ID)).To(Equal(approval.StatusPending))
			Expect(repo.entries).To(BeEmpty())
			Expect(publisher.events).To(BeEmpty())
		})

		It("keeps the transition when a subscriber fails", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 100000, 0, 0)
			publisher.err = errors.New("cache unavailable")

			result, err := service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(approval.StatusApproved))
			Expect(repo.EntriesFor(a.ID)).To(HaveLen(1))
		})
	})

	Describe("Reject", func() {
		It("rejects without touching the ledger", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 200000, 100000, 0)
			reason := "Jumlah tidak sesuai"

			result, err := service.Reject(ctx, a.ID, &reason)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(approval.StatusRejected))
			Expect(result.RejectionReason).NotTo(BeNil())
			Expect(*result.RejectionReason).To(Equal(reason))
			Expect(repo.entries).To(BeEmpty())
			Expect(publisher.events).To(HaveLen(1))
			Expect(publisher.events[0].Status).To(Equal(string(approval.StatusRejected)))
		})

		It("accepts a missing reason", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 200000, 0, 0)

			result, err := service.Reject(ctx, a.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RejectionReason).To(BeNil())
		})

		It("leaves existing postings when rejecting an approved approval", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 500000, 300000, 200000)
			_, err := service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())

			result, err := service.Reject(ctx, a.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(approval.StatusRejected))
			Expect(repo.EntriesFor(a.ID)).To(HaveLen(3))
		})

		It("refuses an overlong reason", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 200000, 0, 0)
			reason := strings.Repeat("x", 501)

			_, err := service.Reject(ctx, a.ID, &reason)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(repo.Status(a.ID)).To(Equal(approval.StatusPending))
		})
	})

	Describe("ResetToPending", func() {
		It("keeps postings by default and never duplicates them on re-approval", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 500000, 300000, 200000)
			_, err := service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())

			result, err := service.ResetToPending(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(approval.StatusPending))
			Expect(repo.EntriesFor(a.ID)).To(HaveLen(3))

			_, err = service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.EntriesFor(a.ID)).To(HaveLen(3))
			Expect(publisher.events).To(HaveLen(3))
			Expect(publisher.events[2].PostedEntries).To(BeZero())
		})

		It("retracts postings under the retract policy", func() {
			service = newService(approval.WithResetPolicy(approval.ResetRetract))
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 500000, 300000, 200000)
			_, err := service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ResetToPending(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.EntriesFor(a.ID)).To(BeEmpty())
			Expect(publisher.events[1].RetractedEntries).To(Equal(int64(3)))

			_, err = service.Approve(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.EntriesFor(a.ID)).To(HaveLen(3))
		})

		It("resets a rejected approval and clears the reason", func() {
			reason := "Salah input"
			a := repo.AddContributionApproval(approval.StatusRejected, tanggal, 100000, 0, 0)
			a.RejectionReason = &reason

			result, err := service.ResetToPending(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(approval.StatusPending))
			Expect(result.RejectionReason).To(BeNil())
		})
	})

	Describe("Get", func() {
		It("returns the approval", func() {
			a := repo.AddContributionApproval(approval.StatusPending, tanggal, 100000, 0, 0)
			result, err := service.Get(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ID).To(Equal(a.ID))
			Expect(result.DoaLingkungan.KolekteI).To(Equal(int64(100000)))
		})

		It("wraps unexpected store errors", func() {
			repo.SetFailOn("GetByID", errors.New("timeout"))
			_, err := service.Get(ctx, uuid.NewString())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeStoreFailure))
		})
	})

	Describe("ListApprovals", func() {
		BeforeEach(func() {
			first := repo.AddContributionApproval(approval.StatusPending, tanggal, 100000, 0, 0)
			first.CreatedAt = now.Add(-2 * time.Hour)
			second := repo.AddContributionApproval(approval.StatusApproved, tanggal, 200000, 0, 0)
			second.CreatedAt = now.Add(-time.Hour)
			third := repo.AddLedgerApproval(approval.StatusRejected, tanggal)
			third.CreatedAt = now
		})

		It("lists everything newest first without a date restriction", func() {
			list, err := service.ListApprovals(ctx, "all", "all-all")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(3))
			Expect(list[0].Status).To(Equal(approval.StatusRejected))
			Expect(list[2].Status).To(Equal(approval.StatusPending))
			Expect(repo.lastFilter.DateRestricted).To(BeFalse())
			Expect(repo.yearBoundsCalls).To(BeZero())
		})

		It("filters by status case-insensitively", func() {
			list, err := service.ListApprovals(ctx, "approved", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].Status).To(Equal(approval.StatusApproved))
		})

		It("restricts an exact month to its range", func() {
			_, err := service.ListApprovals(ctx, "all", "2024-3")
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastFilter.DateRestricted).To(BeTrue())
			Expect(repo.lastFilter.Ranges).To(HaveLen(1))
			Expect(repo.lastFilter.Ranges[0].Start).To(Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
		})

		It("uses the stored year span for a month of any year", func() {
			repo.minYear, repo.maxYear = 2022, 2024
			_, err := service.ListApprovals(ctx, "all", "all-6")
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.yearBoundsCalls).To(Equal(1))
			Expect(repo.lastFilter.Ranges).To(HaveLen(3))
		})

		It("matches nothing for a month of any year on an empty store", func() {
			_, err := service.ListApprovals(ctx, "all", "all-6")
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastFilter.DateRestricted).To(BeTrue())
			Expect(repo.lastFilter.Ranges).To(BeEmpty())
		})

		It("converts ranges to the configured zone", func() {
			jakarta, err := time.LoadLocation("Asia/Jakarta")
			Expect(err).NotTo(HaveOccurred())
			service = newService(approval.WithLocation(jakarta))

			_, err = service.ListApprovals(ctx, "all", "2024-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastFilter.Ranges[0].Start).To(BeTemporally("==", time.Date(2023, time.December, 31, 17, 0, 0, 0, time.UTC)))
		})

		It("rejects malformed tokens", func() {
			_, err := service.ListApprovals(ctx, "all", "2024-13")
			Expect(errors.Is(err, internal.ErrInvalidPeriod)).To(BeTrue())

			_, err = service.ListApprovals(ctx, "done", "all-all")
			Expect(errors.Is(err, internal.ErrInvalidStatusFilter)).To(BeTrue())
		})

		It("wraps store failures", func() {
			repo.SetFailOn("List", errors.New("connection refused"))
			_, err := service.ListApprovals(ctx, "all", "all-all")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeStoreFailure))
		})
	})

	Describe("GetApprovalStats", func() {
		It("queries the current month in the configured zone", func() {
			result, err := service.GetApprovalStats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(Equal(int64(3)))
			Expect(stats.lastMonth.Start).To(Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
			Expect(stats.lastMonth.End).To(Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)))
		})

		It("wraps store failures", func() {
			stats.err = errors.New("boom")
			_, err := service.GetApprovalStats(ctx)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeStoreFailure))
		})
	})

	Describe("ParseResetPolicy", func() {
		It("defaults to keep", func() {
			p, err := approval.ParseResetPolicy("")
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(approval.ResetKeep))
		})

		It("rejects unknown policies", func() {
			_, err := approval.ParseResetPolicy("purge")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidResetPolicy))
		})
	})
})
