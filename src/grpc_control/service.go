package grpc_control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"market-pulse/src/cache"
	"market-pulse/src/config"
	datasource "market-pulse/src/data_source"
	"market-pulse/src/helpers"
	"market-pulse/src/logger"
	"market-pulse/src/models"
	"market-pulse/src/scheduler"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Refresher is the scheduler surface operators drive.
type Refresher interface {
	ForceRefresh(sourceID string) error
	Sources() []scheduler.SourceInfo
}

// ControlService implements ControlServer
type ControlService struct {
	UnimplementedControlServer
	Config     *config.Config
	ConfigPath string
	DataSource *datasource.MultiSourceManager
	Scheduler  Refresher
	Cache      *cache.Cache
	Logger     *logger.Logger

	mu sync.Mutex // serialises UpdateSymbols against Config and its file
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	cfg *config.Config,
	cfgPath string,
	ds *datasource.MultiSourceManager,
	sched Refresher,
	c *cache.Cache,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:     cfg,
		ConfigPath: cfgPath,
		DataSource: ds,
		Scheduler:  sched,
		Cache:      c,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSources(ctx context.Context, req *Empty) (*ListSourcesResponse, error) {
	var response []*SourceStatus

	for _, info := range s.Scheduler.Sources() {
		st := &SourceStatus{
			Name:            info.ID,
			Kind:            string(info.Kind),
			Status:          string(models.StatusUnknown),
			IntervalSeconds: info.Interval.Seconds(),
		}
		if snap, ok := s.Cache.Get(info.ID); ok {
			st.Status = string(snap.Status)
			st.Failures = int32(snap.Failures)
			st.LastError = snap.Error
			if !snap.LastOKAt.IsZero() {
				st.LastOkUnix = snap.LastOKAt.Unix()
			}
		}
		response = append(response, st)
	}

	return &ListSourcesResponse{Sources: response}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) ForceRefresh(ctx context.Context, req *ForceRefreshRequest) (*SourceControlResponse, error) {
	if req.SourceName == "" {
		return nil, status.Error(codes.InvalidArgument, "source_name is required")
	}

	if err := s.Scheduler.ForceRefresh(req.SourceName); err != nil {
		if errors.Is(err, helpers.ErrUnknownSource) {
			return nil, status.Errorf(codes.NotFound, "source %s not found", req.SourceName)
		}
		return &SourceControlResponse{Success: false, Message: err.Error()}, nil
	}

	s.Logger.Info("gRPC: forced refresh of %s", req.SourceName)
	return &SourceControlResponse{
		Success: true,
		Message: fmt.Sprintf("Refresh of %s scheduled", req.SourceName),
	}, nil
}

// -----------------------------------------------------------------------------

// UpdateSymbols updates the symbol list for a specific source
func (s *ControlService) UpdateSymbols(ctx context.Context, req *UpdateSymbolsRequest) (*UpdateSymbolsResponse, error) {
	sName := req.SourceName
	if sName == "" {
		return nil, status.Error(codes.InvalidArgument, "source_name is required")
	}

	entry, err := s.DataSource.GetSource(sName)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "source %s not found", sName)
	}

	newSymbols := normalizeSymbols(req.Symbols, entry.Adapter.Kind())
	if len(newSymbols) == 0 {
		return nil, status.Error(codes.InvalidArgument, "symbols list cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.DataSource.UpdateSymbols(sName, newSymbols); err != nil {
		s.Logger.Error("gRPC: Failed to update running source: %v", err)
		return &UpdateSymbolsResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to update running source: %v", err),
		}, nil
	}

	for _, sym := range newSymbols {
		s.Cache.TrackInstrument(sym)
	}

	found := false
	for i, src := range s.Config.Sources {
		if src.Name == sName {
			s.Config.Sources[i].Symbols = newSymbols
			found = true
			break
		}
	}

	if found && s.ConfigPath != "" {
		if err := s.Config.Save(s.ConfigPath); err != nil {
			s.Logger.Error("gRPC: Failed to persist config: %v", err)
		}
	}

	s.Logger.Info("gRPC: UpdateSymbols success for %s. Count: %d", sName, len(newSymbols))
	return &UpdateSymbolsResponse{
		Success:     true,
		Message:     fmt.Sprintf("Successfully updated %s with %d symbols", sName, len(newSymbols)),
		SymbolCount: int32(len(newSymbols)),
	}, nil
}

// normalizeSymbols trims, drops blanks and duplicates, and upper-cases
// tickers the way chart lookups do.
func normalizeSymbols(symbols []string, kind models.SourceKind) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if kind == models.KindStocks {
			sym = strings.ToUpper(sym)
		}
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}
