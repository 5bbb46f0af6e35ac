package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/internal/approval"
	datamodel "github.com/frahmantamala/lingkungan/internal/core/datamodel/lingkungan"
	"gorm.io/gorm"
)

// ApprovalRepository implements approval.Repository using GORM.
type ApprovalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

func (r *ApprovalRepository) WithinTx(ctx context.Context, fn func(tx approval.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ApprovalRepository{db: tx})
	})
}

func (r *ApprovalRepository) withRefs(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("DoaLingkungan.TuanRumah").
		Preload("KasLingkungan")
}

func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*approval.Approval, error) {
	var m datamodel.Approval
	err := r.withRefs(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrApprovalNotFound
		}
		return nil, err
	}
	return approval.FromDataModel(&m), nil
}

// UpdateStatus is a compare-and-set on the status column.
func (r *ApprovalRepository) UpdateStatus(ctx context.Context, id string, expected approval.Status, u approval.StatusUpdate) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&datamodel.Approval{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(map[string]interface{}{
			"status":           string(u.Status),
			"rejection_reason": u.RejectionReason,
			"processed_at":     u.ProcessedAt,
			"updated_at":       u.ProcessedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ApprovalRepository) PostedCategories(ctx context.Context, approvalID string) (map[approval.TransactionType]bool, error) {
	var types []string
	err := r.db.WithContext(ctx).
		Model(&datamodel.KasLingkungan{}).
		Where("approval_id = ?", approvalID).
		Pluck("tipe_transaksi", &types).Error
	if err != nil {
		return nil, err
	}

	posted := make(map[approval.TransactionType]bool, len(types))
	for _, t := range types {
		posted[approval.TransactionType(t)] = true
	}
	return posted, nil
}

// CreateLedgerEntries inserts the entries in one statement and writes the
// generated ids back. A duplicate (approval_id, tipe_transaksi) surfaces as
// internal.ErrApprovalConflict.
func (r *ApprovalRepository) CreateLedgerEntries(ctx context.Context, entries []*approval.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]*datamodel.KasLingkungan, len(entries))
	for i, e := range entries {
		models[i] = approval.LedgerEntryToDataModel(e)
	}

	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return internal.ErrApprovalConflict.WithCause(err)
		}
		return err
	}

	for i, m := range models {
		entries[i].ID = m.ID
		entries[i].CreatedAt = m.CreatedAt
	}
	return nil
}

func (r *ApprovalRepository) DeletePostings(ctx context.Context, approvalID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("approval_id = ?", approvalID).
		Delete(&datamodel.KasLingkungan{})
	return res.RowsAffected, res.Error
}

// List applies the status filter and the date ranges. A date range matches
// when either the contribution date or the direct ledger date falls inside.
func (r *ApprovalRepository) List(ctx context.Context, filter approval.ListFilter) ([]*approval.Approval, error) {
	if filter.DateRestricted && len(filter.Ranges) == 0 {
		return []*approval.Approval{}, nil
	}

	q := r.withRefs(ctx).Model(&datamodel.Approval{})
	if !filter.Status.All() {
		q = q.Where("approvals.status = ?", string(filter.Status.Status))
	}
	if filter.DateRestricted {
		cond, args := rangeCondition("tanggal", filter.Ranges)
		q = q.Where(
			"(approvals.doa_lingkungan_id IN (SELECT id FROM doa_lingkungan WHERE "+cond+")"+
				" OR approvals.kas_lingkungan_id IN (SELECT id FROM kas_lingkungan WHERE "+cond+"))",
			append(append([]interface{}{}, args...), args...)...,
		)
	}

	var models []*datamodel.Approval
	if err := q.Order("approvals.created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return approval.FromDataModelSlice(models), nil
}

// dateLayout binds range bounds as calendar days so DATE columns compare by
// day on every driver.
const dateLayout = "2006-01-02"

// rangeCondition renders "(col >= ? AND col < ?) OR ..." for ranges over a
// DATE column.
func rangeCondition(col string, ranges []approval.DateRange) (string, []interface{}) {
	parts := make([]string, len(ranges))
	args := make([]interface{}, 0, len(ranges)*2)
	for i, rg := range ranges {
		parts[i] = "(" + col + " >= ? AND " + col + " < ?)"
		args = append(args, rg.Start.Format(dateLayout), rg.End.Format(dateLayout))
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func (r *ApprovalRepository) YearBounds(ctx context.Context) (int, int, error) {
	var minYear, maxYear int
	for _, model := range []interface{}{&datamodel.DoaLingkungan{}, &datamodel.KasLingkungan{}} {
		first, err := r.edgeDate(ctx, model, "ASC")
		if err != nil {
			return 0, 0, err
		}
		last, err := r.edgeDate(ctx, model, "DESC")
		if err != nil {
			return 0, 0, err
		}
		if first == nil || last == nil {
			continue
		}
		if minYear == 0 || first.Year() < minYear {
			minYear = first.Year()
		}
		if last.Year() > maxYear {
			maxYear = last.Year()
		}
	}
	return minYear, maxYear, nil
}

// edgeDate returns the earliest or latest tanggal of model, or nil when empty.
func (r *ApprovalRepository) edgeDate(ctx context.Context, model interface{}, direction string) (*time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Model(model).
		Order("tanggal "+direction).
		Limit(1).
		Pluck("tanggal", &dates).Error
	if err != nil || len(dates) == 0 {
		return nil, err
	}
	return &dates[0], nil
}
