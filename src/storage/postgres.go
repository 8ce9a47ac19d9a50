package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"market-pulse/src/logger"
	"market-pulse/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresDB archives history in a schema named after the running binary.
type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."history_points" (
			instrument_id TEXT NOT NULL,
			observed_at BIGINT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (instrument_id, observed_at)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create history_points: %w", err)
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table() string {
	return fmt.Sprintf(`"%s"."history_points"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveHistoryPoints(points []models.MHistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (instrument_id, observed_at, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (instrument_id, observed_at) DO UPDATE SET value = EXCLUDED.value
	`, d.table()))
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

func (d *PostgresDB) LoadRecentHistory(instrumentID string, limit int) ([]models.MHistoryPoint, error) {
	rows, err := d.DB.Query(fmt.Sprintf(`
		SELECT instrument_id, observed_at, value FROM %s
		WHERE instrument_id = $1
		ORDER BY observed_at DESC
		LIMIT $2
	`, d.table()), instrumentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanHistory(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData(cutoff time.Time) error {
	res, err := d.DB.Exec(fmt.Sprintf("DELETE FROM %s WHERE observed_at < $1", d.table()), cutoff.UnixNano())
	if err != nil {
		d.Logger.Error("Cleanup history_points error: %v", err)
		return err
	}
	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup completed, %d points removed", n)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
