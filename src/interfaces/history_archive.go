package interfaces

import (
	"time"

	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------
// IHistoryArchive defines the contract for the optional history persistence.
// -----------------------------------------------------------------------------

type IHistoryArchive interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveHistoryPoints inserts a batch of observations.
	SaveHistoryPoints(points []models.MHistoryPoint) error

	// -----------------------------------------------------------------------------

	// LoadRecentHistory returns up to limit newest points, oldest first.
	LoadRecentHistory(instrumentID string, limit int) ([]models.MHistoryPoint, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes points observed before the cutoff.
	CleanupOldData(cutoff time.Time) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
