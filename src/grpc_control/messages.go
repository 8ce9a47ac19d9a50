package grpc_control

// Control service messages as the service sees them. proto.go maps them to
// and from the wire.

type Empty struct{}

type SourceStatus struct {
	Name            string
	Kind            string
	Status          string
	IntervalSeconds float64
	Failures        int32
	LastError       string
	LastOkUnix      int64
}

type ListSourcesResponse struct {
	Sources []*SourceStatus
}

type ForceRefreshRequest struct {
	SourceName string
}

type SourceControlResponse struct {
	Success bool
	Message string
}

type UpdateSymbolsRequest struct {
	SourceName string
	Symbols    []string
}

type UpdateSymbolsResponse struct {
	Success     bool
	Message     string
	SymbolCount int32
}
