package interfaces

import (
	"context"
	"time"

	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------
// ISourceAdapter is the opaque fetch operation behind one external source.
// -----------------------------------------------------------------------------

type ISourceAdapter interface {

	// ID returns the unique source identifier ("stocks", "weather", "news")
	ID() string

	// -----------------------------------------------------------------------------

	// Kind returns the payload shape this adapter produces
	Kind() models.SourceKind

	// -----------------------------------------------------------------------------

	// Fetch performs one fetch. The context carries the per-attempt timeout.
	// Returned payloads are validated by the caller.
	Fetch(ctx context.Context) (models.Payload, error)
}

// -----------------------------------------------------------------------------
// IActiveWindow is implemented by adapters that only produce data at certain
// times (e.g. market hours). Scheduled ticks outside the window are skipped.
// -----------------------------------------------------------------------------

type IActiveWindow interface {
	Active(now time.Time) bool
}

// -----------------------------------------------------------------------------
// ISymbolUpdater is implemented by quote adapters whose symbol list can be
// changed at runtime.
// -----------------------------------------------------------------------------

type ISymbolUpdater interface {
	UpdateSymbols(symbols []string)
}
