package approval

import (
	"fmt"
	"time"
)

type Direction string

const (
	DirectionInflow  Direction = "UANG_MASUK"
	DirectionOutflow Direction = "UANG_KELUAR"
)

type TransactionType string

const (
	TypeKolekteI      TransactionType = "KOLEKTE_I"
	TypeKolekteII     TransactionType = "KOLEKTE_II"
	TypeSumbanganUmat TransactionType = "SUMBANGAN_UMAT"

	// Direct ledger categories; never produced by posting.
	TypeIuranAnggota  TransactionType = "IURAN_ANGGOTA"
	TypeSumbanganLain TransactionType = "SUMBANGAN_LAIN"
	TypeOperasional   TransactionType = "OPERASIONAL"
	TypeLainLain      TransactionType = "LAIN_LAIN"
)

var transactionLabels = map[TransactionType]string{
	TypeKolekteI:      "Kolekte I",
	TypeKolekteII:     "Kolekte II",
	TypeSumbanganUmat: "Sumbangan Umat",
	TypeIuranAnggota:  "Iuran Anggota",
	TypeSumbanganLain: "Sumbangan Lain",
	TypeOperasional:   "Operasional",
	TypeLainLain:      "Lain-lain",
}

func (t TransactionType) Label() string {
	if l, ok := transactionLabels[t]; ok {
		return l
	}
	return string(t)
}

// Keterangan builds the traceable description of a posting,
// e.g. "Kolekte I - Doa Lingkungan 15/01/2024".
func Keterangan(t TransactionType, tanggal time.Time) string {
	return fmt.Sprintf("%s - Doa Lingkungan %s", t.Label(), tanggal.Format("02/01/2006"))
}

// BuildPostings returns one inflow entry per positive sub-amount of c, in
// the fixed order Kolekte I, Kolekte II, Sumbangan Umat. Categories present
// in posted are skipped.
func BuildPostings(c *Contribution, approvalID string, posted map[TransactionType]bool) []*LedgerEntry {
	if c == nil {
		return nil
	}
	amounts := []struct {
		typ    TransactionType
		amount int64
	}{
		{TypeKolekteI, c.KolekteI},
		{TypeKolekteII, c.KolekteII},
		{TypeSumbanganUmat, c.UcapanSyukur},
	}

	entries := make([]*LedgerEntry, 0, len(amounts))
	for _, a := range amounts {
		if a.amount <= 0 || posted[a.typ] {
			continue
		}
		id := approvalID
		entries = append(entries, &LedgerEntry{
			Tanggal:        c.Tanggal,
			JenisTransaksi: DirectionInflow,
			TipeTransaksi:  a.typ,
			Keterangan:     Keterangan(a.typ, c.Tanggal),
			Debit:          a.amount,
			Kredit:         0,
			ApprovalID:     &id,
		})
	}
	return entries
}
