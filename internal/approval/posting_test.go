package approval_test

import (
	"time"

	"github.com/frahmantamala/lingkungan/internal/approval"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BuildPostings", func() {
	var contribution *approval.Contribution

	BeforeEach(func() {
		contribution = &approval.Contribution{
			ID:           "doa-1",
			Tanggal:      time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			KolekteI:     500000,
			KolekteII:    300000,
			UcapanSyukur: 200000,
		}
	})

	It("posts one inflow per positive sub-amount in fixed order", func() {
		entries := approval.BuildPostings(contribution, "approval-1", nil)
		Expect(entries).To(HaveLen(3))

		Expect(entries[0].TipeTransaksi).To(Equal(approval.TypeKolekteI))
		Expect(entries[0].Debit).To(Equal(int64(500000)))
		Expect(entries[0].Keterangan).To(Equal("Kolekte I - Doa Lingkungan 15/01/2024"))

		Expect(entries[1].TipeTransaksi).To(Equal(approval.TypeKolekteII))
		Expect(entries[1].Debit).To(Equal(int64(300000)))
		Expect(entries[1].Keterangan).To(Equal("Kolekte II - Doa Lingkungan 15/01/2024"))

		Expect(entries[2].TipeTransaksi).To(Equal(approval.TypeSumbanganUmat))
		Expect(entries[2].Debit).To(Equal(int64(200000)))
		Expect(entries[2].Keterangan).To(Equal("Sumbangan Umat - Doa Lingkungan 15/01/2024"))

		var total int64
		for _, e := range entries {
			Expect(e.JenisTransaksi).To(Equal(approval.DirectionInflow))
			Expect(e.Kredit).To(BeZero())
			Expect(e.Tanggal).To(Equal(contribution.Tanggal))
			Expect(e.ApprovalID).NotTo(BeNil())
			Expect(*e.ApprovalID).To(Equal("approval-1"))
			total += e.Debit
		}
		Expect(total).To(Equal(contribution.Total()))
	})

	It("skips zero amounts", func() {
		contribution.KolekteII = 0
		contribution.UcapanSyukur = 0
		entries := approval.BuildPostings(contribution, "approval-1", nil)
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].TipeTransaksi).To(Equal(approval.TypeKolekteI))
	})

	It("produces nothing for an all-zero contribution", func() {
		contribution.KolekteI, contribution.KolekteII, contribution.UcapanSyukur = 0, 0, 0
		Expect(approval.BuildPostings(contribution, "approval-1", nil)).To(BeEmpty())
	})

	It("skips categories already posted", func() {
		posted := map[approval.TransactionType]bool{approval.TypeKolekteI: true}
		entries := approval.BuildPostings(contribution, "approval-1", posted)
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].TipeTransaksi).To(Equal(approval.TypeKolekteII))
	})

	It("gives each entry its own approval id pointer", func() {
		entries := approval.BuildPostings(contribution, "approval-1", nil)
		*entries[0].ApprovalID = "changed"
		Expect(*entries[1].ApprovalID).To(Equal("approval-1"))
	})
})
