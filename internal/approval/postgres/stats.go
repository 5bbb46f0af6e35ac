package postgres

import (
	"context"

	"github.com/frahmantamala/lingkungan/internal/approval"
	"github.com/jmoiron/sqlx"
)

const approvedAmount = "COALESCE(d.kolekte_i, 0) + COALESCE(d.kolekte_ii, 0) + COALESCE(d.ucapan_syukur, 0)"

const statsQuery = `
SELECT
	COUNT(*) AS total,
	CAST(COALESCE(SUM(CASE WHEN a.status = 'PENDING' THEN 1 ELSE 0 END), 0) AS BIGINT) AS pending,
	CAST(COALESCE(SUM(CASE WHEN a.status = 'APPROVED' THEN 1 ELSE 0 END), 0) AS BIGINT) AS approved,
	CAST(COALESCE(SUM(CASE WHEN a.status = 'REJECTED' THEN 1 ELSE 0 END), 0) AS BIGINT) AS rejected,
	CAST(COALESCE(SUM(CASE WHEN a.status = 'APPROVED' THEN ` + approvedAmount + ` ELSE 0 END), 0) AS BIGINT) AS total_amount,
	CAST(COALESCE(SUM(CASE WHEN a.status = 'APPROVED' AND a.created_at >= ? AND a.created_at < ? THEN 1 ELSE 0 END), 0) AS BIGINT) AS this_month_approved,
	CAST(COALESCE(SUM(CASE WHEN a.status = 'APPROVED' AND a.created_at >= ? AND a.created_at < ? THEN ` + approvedAmount + ` ELSE 0 END), 0) AS BIGINT) AS this_month_amount
FROM approvals a
LEFT JOIN doa_lingkungan d ON d.id = a.doa_lingkungan_id`

// StatsReader computes approval statistics in one aggregate query.
type StatsReader struct {
	db *sqlx.DB
}

func NewStatsReader(db *sqlx.DB) *StatsReader {
	return &StatsReader{db: db}
}

func (r *StatsReader) Stats(ctx context.Context, month approval.DateRange) (*approval.Stats, error) {
	var stats approval.Stats
	query := r.db.Rebind(statsQuery)
	// created_at is written in UTC; zoned bounds would compare as text on SQLite.
	start, end := month.Start.UTC(), month.End.UTC()
	if err := r.db.GetContext(ctx, &stats, query, start, end, start, end); err != nil {
		return nil, err
	}
	return &stats, nil
}
