package storage

import (
	"database/sql"
	"fmt"
	"time"

	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------

// NewArchive returns the configured history archive, or nil when storage is
// disabled. The archive is not yet initialized.
func NewArchive(cfg *models.MConfig, log *logger.Logger) (interfaces.IHistoryArchive, error) {
	switch cfg.Storage.DBType {
	case "", "none":
		return nil, nil
	case "sqlite":
		return NewAsyncSQLiteDB(cfg, log), nil
	case "postgres":
		pg, err := NewPostgresDB(cfg, log)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------

// RetentionCutoff is the oldest observation time kept by CleanupOldData.
func RetentionCutoff(cfg *models.MConfig, now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -cfg.Storage.RetentionDays)
}

// -----------------------------------------------------------------------------

// scanHistory reads newest-first rows and returns them oldest first.
func scanHistory(rows *sql.Rows) ([]models.MHistoryPoint, error) {
	var out []models.MHistoryPoint
	for rows.Next() {
		var (
			p  models.MHistoryPoint
			ns int64
		)
		if err := rows.Scan(&p.InstrumentID, &ns, &p.Value); err != nil {
			return nil, err
		}
		p.ObservedAt = time.Unix(0, ns).UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
