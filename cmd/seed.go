package cmd

import (
	"fmt"
	"time"

	"github.com/frahmantamala/lingkungan/internal/approval"
	"github.com/frahmantamala/lingkungan/internal/core/common/validation"
	datamodel "github.com/frahmantamala/lingkungan/internal/core/datamodel/lingkungan"
	"github.com/frahmantamala/lingkungan/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed households, Doa Lingkungan records with their approvals, and direct Kas Lingkungan entries.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		lg := logger.LoggerWrapper()

		db, err := openDatabase(cfg.Database, lg)
		if err != nil {
			return err
		}
		defer db.Close()

		loc, err := cfg.Approval.Location()
		if err != nil {
			return err
		}

		return db.Gorm.Transaction(func(tx *gorm.DB) error {
			if clearData {
				if err := clearSeedData(tx); err != nil {
					return err
				}
				lg.Info("existing data cleared")
			}
			return seedData(tx, time.Now().In(loc))
		})
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
}

func clearSeedData(tx *gorm.DB) error {
	for _, table := range []string{"kas_lingkungan", "approvals", "doa_lingkungan", "keluarga"} {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

type seedDoa struct {
	host       int
	monthsAgo  int
	day        int
	kolekteI   int64
	kolekteII  int64
	ucapan     int64
	status     approval.Status
	rejectNote string
}

func seedData(tx *gorm.DB, now time.Time) error {
	households := []*datamodel.Keluarga{
		{NamaKepalaKeluarga: "Yohanes Sutrisno", Alamat: "Jl. Melati 3"},
		{NamaKepalaKeluarga: "Maria Lestari", Alamat: "Jl. Kenanga 12"},
		{NamaKepalaKeluarga: "Antonius Wibowo", Alamat: "Jl. Mawar 7"},
		{NamaKepalaKeluarga: "Fransiska Dewi", Alamat: "Jl. Anggrek 21"},
	}
	if err := tx.Create(&households).Error; err != nil {
		return fmt.Errorf("seed keluarga: %w", err)
	}
	fmt.Printf("Seeded %d households\n", len(households))

	records := []seedDoa{
		{host: 0, monthsAgo: 0, day: 5, kolekteI: 450000, kolekteII: 325000, ucapan: 200000, status: approval.StatusPending},
		{host: 1, monthsAgo: 0, day: 12, kolekteI: 300000, kolekteII: 250000, status: approval.StatusPending},
		{host: 2, monthsAgo: 1, day: 8, kolekteI: 275000, kolekteII: 150000, ucapan: 100000, status: approval.StatusApproved},
		{host: 3, monthsAgo: 2, day: 14, kolekteI: 380000, ucapan: 50000, status: approval.StatusApproved},
		{host: 0, monthsAgo: 12, day: 10, kolekteI: 410000, kolekteII: 290000, ucapan: 150000, status: approval.StatusApproved},
		{host: 1, monthsAgo: 3, day: 20, kolekteI: 120000, status: approval.StatusRejected, rejectNote: "Jumlah tidak sesuai catatan bendahara"},
	}

	for _, rec := range records {
		if verr := validation.ValidateContributionAmounts(rec.kolekteI, rec.kolekteII, rec.ucapan); verr != nil {
			return verr
		}
		if err := seedContribution(tx, households[rec.host], rec, now); err != nil {
			return err
		}
	}
	fmt.Printf("Seeded %d Doa Lingkungan records with approvals\n", len(records))

	direct := []struct {
		monthsAgo int
		jenis     approval.Direction
		tipe      approval.TransactionType
		note      string
		amount    int64
	}{
		{1, approval.DirectionInflow, approval.TypeIuranAnggota, "Iuran anggota bulanan", 600000},
		{1, approval.DirectionOutflow, approval.TypeOperasional, "Pembelian lilin dan bunga", 175000},
		{4, approval.DirectionInflow, approval.TypeSumbanganLain, "Sumbangan paroki", 1000000},
	}
	for _, d := range direct {
		tanggal := monthDate(now, d.monthsAgo, 1)
		entry := &datamodel.KasLingkungan{
			Tanggal:        tanggal,
			JenisTransaksi: string(d.jenis),
			TipeTransaksi:  string(d.tipe),
			Keterangan:     d.note,
		}
		if d.jenis == approval.DirectionInflow {
			entry.Debit = d.amount
		} else {
			entry.Kredit = d.amount
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("seed kas_lingkungan: %w", err)
		}
		processed := tanggal
		if err := tx.Create(&datamodel.Approval{
			Status:          string(approval.StatusApproved),
			KasLingkunganID: &entry.ID,
			ProcessedAt:     &processed,
		}).Error; err != nil {
			return fmt.Errorf("seed approval for kas entry: %w", err)
		}
	}
	fmt.Printf("Seeded %d direct Kas Lingkungan entries\n", len(direct))
	return nil
}

func seedContribution(tx *gorm.DB, host *datamodel.Keluarga, rec seedDoa, now time.Time) error {
	doa := &datamodel.DoaLingkungan{
		Tanggal:      monthDate(now, rec.monthsAgo, rec.day),
		TuanRumahID:  host.ID,
		KolekteI:     rec.kolekteI,
		KolekteII:    rec.kolekteII,
		UcapanSyukur: rec.ucapan,
	}
	if err := tx.Create(doa).Error; err != nil {
		return fmt.Errorf("seed doa_lingkungan: %w", err)
	}

	a := &datamodel.Approval{
		Status:          string(rec.status),
		DoaLingkunganID: &doa.ID,
	}
	if rec.status != approval.StatusPending {
		processed := doa.Tanggal.AddDate(0, 0, 2)
		a.ProcessedAt = &processed
	}
	if rec.rejectNote != "" {
		note := rec.rejectNote
		a.RejectionReason = &note
	}
	if err := tx.Create(a).Error; err != nil {
		return fmt.Errorf("seed approval: %w", err)
	}

	// Pre-approved records carry the postings an approval would have made.
	if rec.status == approval.StatusApproved {
		contribution := &approval.Contribution{
			ID:           doa.ID,
			Tanggal:      doa.Tanggal,
			KolekteI:     doa.KolekteI,
			KolekteII:    doa.KolekteII,
			UcapanSyukur: doa.UcapanSyukur,
		}
		for _, e := range approval.BuildPostings(contribution, a.ID, nil) {
			if err := tx.Create(approval.LedgerEntryToDataModel(e)).Error; err != nil {
				return fmt.Errorf("seed posting: %w", err)
			}
		}
	}
	return nil
}

// monthDate is the given day of the month monthsAgo months before now, at midnight UTC.
func monthDate(now time.Time, monthsAgo, day int) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -monthsAgo, day-1)
}
