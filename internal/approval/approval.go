package approval

import (
	"time"

	"github.com/frahmantamala/lingkungan/internal"
	datamodel "github.com/frahmantamala/lingkungan/internal/core/datamodel/lingkungan"
)

// RoutePath is the view path whose cached renderings depend on approval state.
const RoutePath = "/approval"

type Approval struct {
	ID              string        `json:"id"`
	Status          Status        `json:"status"`
	KasLingkunganID *string       `json:"kas_lingkungan_id,omitempty"`
	KasLingkungan   *LedgerEntry  `json:"kas_lingkungan,omitempty"`
	DoaLingkunganID *string       `json:"doa_lingkungan_id,omitempty"`
	DoaLingkungan   *Contribution `json:"doa_lingkungan,omitempty"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	ProcessedAt     *time.Time    `json:"processed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type Household struct {
	ID                 string `json:"id"`
	NamaKepalaKeluarga string `json:"nama_kepala_keluarga"`
	Alamat             string `json:"alamat,omitempty"`
}

type Contribution struct {
	ID           string     `json:"id"`
	Tanggal      time.Time  `json:"tanggal"`
	TuanRumahID  string     `json:"tuan_rumah_id"`
	TuanRumah    *Household `json:"tuan_rumah,omitempty"`
	KolekteI     int64      `json:"kolekte_i"`
	KolekteII    int64      `json:"kolekte_ii"`
	UcapanSyukur int64      `json:"ucapan_syukur"`
}

// Total is the sum of the three collected sub-amounts.
func (c *Contribution) Total() int64 {
	return c.KolekteI + c.KolekteII + c.UcapanSyukur
}

type LedgerEntry struct {
	ID             string          `json:"id"`
	Tanggal        time.Time       `json:"tanggal"`
	JenisTransaksi Direction       `json:"jenis_transaksi"`
	TipeTransaksi  TransactionType `json:"tipe_transaksi"`
	Keterangan     string          `json:"keterangan"`
	Debit          int64           `json:"debit"`
	Kredit         int64           `json:"kredit"`
	ApprovalID     *string         `json:"approval_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Validate checks that exactly one reference is populated.
func (a *Approval) Validate() error {
	hasKas := a.KasLingkunganID != nil && *a.KasLingkunganID != ""
	hasDoa := a.DoaLingkunganID != nil && *a.DoaLingkunganID != ""
	if hasKas == hasDoa {
		return internal.ErrInvalidApprovalReference
	}
	if !a.Status.IsValid() {
		return internal.ErrInvalidTransition
	}
	return nil
}

func (a *Approval) ReferencesContribution() bool {
	return a.DoaLingkunganID != nil && *a.DoaLingkunganID != ""
}

// ReferenceDate is the date of whichever reference is populated, falling back
// to the approval's creation time.
func (a *Approval) ReferenceDate() time.Time {
	switch {
	case a.DoaLingkungan != nil && !a.DoaLingkungan.Tanggal.IsZero():
		return a.DoaLingkungan.Tanggal
	case a.KasLingkungan != nil && !a.KasLingkungan.Tanggal.IsZero():
		return a.KasLingkungan.Tanggal
	}
	return a.CreatedAt
}

func FromDataModel(m *datamodel.Approval) *Approval {
	if m == nil {
		return nil
	}
	a := &Approval{
		ID:              m.ID,
		Status:          Status(m.Status),
		KasLingkunganID: m.KasLingkunganID,
		DoaLingkunganID: m.DoaLingkunganID,
		RejectionReason: m.RejectionReason,
		ProcessedAt:     m.ProcessedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.KasLingkungan != nil {
		a.KasLingkungan = LedgerEntryFromDataModel(m.KasLingkungan)
	}
	if m.DoaLingkungan != nil {
		a.DoaLingkungan = contributionFromDataModel(m.DoaLingkungan)
	}
	return a
}

func FromDataModelSlice(models []*datamodel.Approval) []*Approval {
	result := make([]*Approval, len(models))
	for i, m := range models {
		result[i] = FromDataModel(m)
	}
	return result
}

func contributionFromDataModel(m *datamodel.DoaLingkungan) *Contribution {
	c := &Contribution{
		ID:           m.ID,
		Tanggal:      m.Tanggal,
		TuanRumahID:  m.TuanRumahID,
		KolekteI:     m.KolekteI,
		KolekteII:    m.KolekteII,
		UcapanSyukur: m.UcapanSyukur,
	}
	if m.TuanRumah != nil {
		c.TuanRumah = &Household{
			ID:                 m.TuanRumah.ID,
			NamaKepalaKeluarga: m.TuanRumah.NamaKepalaKeluarga,
			Alamat:             m.TuanRumah.Alamat,
		}
	}
	return c
}

func LedgerEntryFromDataModel(m *datamodel.KasLingkungan) *LedgerEntry {
	return &LedgerEntry{
		ID:             m.ID,
		Tanggal:        m.Tanggal,
		JenisTransaksi: Direction(m.JenisTransaksi),
		TipeTransaksi:  TransactionType(m.TipeTransaksi),
		Keterangan:     m.Keterangan,
		Debit:          m.Debit,
		Kredit:         m.Kredit,
		ApprovalID:     m.ApprovalID,
		CreatedAt:      m.CreatedAt,
	}
}

func LedgerEntryToDataModel(e *LedgerEntry) *datamodel.KasLingkungan {
	return &datamodel.KasLingkungan{
		ID:             e.ID,
		Tanggal:        e.Tanggal,
		JenisTransaksi: string(e.JenisTransaksi),
		TipeTransaksi:  string(e.TipeTransaksi),
		Keterangan:     e.Keterangan,
		Debit:          e.Debit,
		Kredit:         e.Kredit,
		ApprovalID:     e.ApprovalID,
		CreatedAt:      e.CreatedAt,
	}
}
