package storage

import (
	"database/sql"
	"fmt"
	"time"

	"market-pulse/src/logger"
	"market-pulse/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// AsyncSQLiteDB archives instrument history in a local SQLite file.
type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) *AsyncSQLiteDB {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// a single writer avoids SQLITE_BUSY under the async archive goroutines
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	d.DB = db

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("SQLite archive initialized at %s", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS history_points (
			instrument_id TEXT NOT NULL,
			observed_at INTEGER NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (instrument_id, observed_at)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create history_points: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveHistoryPoints(points []models.MHistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO history_points (instrument_id, observed_at, value)
		VALUES (?, ?, ?)
		ON CONFLICT (instrument_id, observed_at) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(p.InstrumentID, p.ObservedAt.UnixNano(), p.Value); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadRecentHistory(instrumentID string, limit int) ([]models.MHistoryPoint, error) {
	rows, err := d.DB.Query(`
		SELECT instrument_id, observed_at, value FROM history_points
		WHERE instrument_id = ?
		ORDER BY observed_at DESC
		LIMIT ?
	`, instrumentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanHistory(rows)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData(cutoff time.Time) error {
	res, err := d.DB.Exec("DELETE FROM history_points WHERE observed_at < ?", cutoff.UnixNano())
	if err != nil {
		d.Logger.Error("Cleanup history_points error: %v", err)
		return err
	}
	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup completed, %d points older than %s removed", n, cutoff.UTC().Format(time.RFC3339))
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
