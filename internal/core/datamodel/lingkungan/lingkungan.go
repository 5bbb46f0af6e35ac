package lingkungan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Keluarga is a household of the neighborhood.
type Keluarga struct {
	ID                 string    `gorm:"primaryKey;type:varchar(36)"`
	NamaKepalaKeluarga string    `gorm:"column:nama_kepala_keluarga;not null"`
	Alamat             string    `gorm:"column:alamat"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (Keluarga) TableName() string {
	return "keluarga"
}

func (k *Keluarga) BeforeCreate(*gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// DoaLingkungan is a prayer-meeting event with its collected amounts.
type DoaLingkungan struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	Tanggal      time.Time `gorm:"column:tanggal;type:date;not null;index"`
	TuanRumahID  string    `gorm:"column:tuan_rumah_id;type:varchar(36);not null"`
	TuanRumah    *Keluarga `gorm:"foreignKey:TuanRumahID"`
	KolekteI     int64     `gorm:"column:kolekte_i;not null;default:0"`
	KolekteII    int64     `gorm:"column:kolekte_ii;not null;default:0"`
	UcapanSyukur int64     `gorm:"column:ucapan_syukur;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (DoaLingkungan) TableName() string {
	return "doa_lingkungan"
}

func (d *DoaLingkungan) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// KasLingkungan is a neighborhood-cash ledger entry. ApprovalID is set only on
// entries posted from an approved DoaLingkungan; (approval_id, tipe_transaksi)
// is unique so a category is posted at most once per approval.
type KasLingkungan struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	Tanggal        time.Time `gorm:"column:tanggal;type:date;not null;index"`
	JenisTransaksi string    `gorm:"column:jenis_transaksi;type:varchar(20);not null"`
	TipeTransaksi  string    `gorm:"column:tipe_transaksi;type:varchar(30);not null;uniqueIndex:idx_kas_posting,priority:2"`
	Keterangan     string    `gorm:"column:keterangan"`
	Debit          int64     `gorm:"column:debit;not null;default:0"`
	Kredit         int64     `gorm:"column:kredit;not null;default:0"`
	ApprovalID     *string   `gorm:"column:approval_id;type:varchar(36);uniqueIndex:idx_kas_posting,priority:1"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (KasLingkungan) TableName() string {
	return "kas_lingkungan"
}

func (k *KasLingkungan) BeforeCreate(*gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// Approval wraps exactly one of a DoaLingkungan or a direct KasLingkungan entry.
type Approval struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)"`
	Status          string         `gorm:"column:status;type:varchar(20);not null;default:'PENDING';index"`
	KasLingkunganID *string        `gorm:"column:kas_lingkungan_id;type:varchar(36);uniqueIndex"`
	KasLingkungan   *KasLingkungan `gorm:"foreignKey:KasLingkunganID"`
	DoaLingkunganID *string        `gorm:"column:doa_lingkungan_id;type:varchar(36);uniqueIndex"`
	DoaLingkungan   *DoaLingkungan `gorm:"foreignKey:DoaLingkunganID"`
	RejectionReason *string        `gorm:"column:rejection_reason"`
	ProcessedAt     *time.Time     `gorm:"column:processed_at"`
	CreatedAt       time.Time      `gorm:"column:created_at;index"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"`
}

func (Approval) TableName() string {
	return "approvals"
}

func (a *Approval) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Models lists every table in dependency order, for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&Keluarga{},
		&DoaLingkungan{},
		&KasLingkungan{},
		&Approval{},
	}
}
