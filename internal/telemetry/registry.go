package telemetry

import (
	"context"
	"fmt"
	"sync"
)

// GaugeReaderFunc reads the current level from an external gauge source.
type GaugeReaderFunc func(ctx context.Context, source string) (uint64, error)

// GaugeReaderConfig holds the configuration for one gauge source scheme.
type GaugeReaderConfig struct {
	// Scheme is the URL scheme this reader handles (e.g. "https", "file").
	Scheme string

	// Name is the human-readable name of the reader.
	Name string

	// Read fetches the current level from the given source.
	Read GaugeReaderFunc
}

var (
	gaugeReadersMu sync.RWMutex
	gaugeReaders   = make(map[string]GaugeReaderConfig)
)

// RegisterGaugeReader registers a reader for a source scheme. This is
// typically called from an init() function in each reader file.
func RegisterGaugeReader(cfg GaugeReaderConfig) {
	if cfg.Scheme == "" {
		panic("telemetry: RegisterGaugeReader called with empty scheme")
	}
	if cfg.Read == nil {
		panic(fmt.Sprintf("telemetry: RegisterGaugeReader(%q) called with nil Read", cfg.Scheme))
	}

	gaugeReadersMu.Lock()
	defer gaugeReadersMu.Unlock()

	if _, exists := gaugeReaders[cfg.Scheme]; exists {
		panic(fmt.Sprintf("telemetry: RegisterGaugeReader called twice for scheme %q", cfg.Scheme))
	}
	gaugeReaders[cfg.Scheme] = cfg
}

// GetGaugeReader returns the reader registered for a source scheme.
func GetGaugeReader(scheme string) (GaugeReaderConfig, bool) {
	gaugeReadersMu.RLock()
	defer gaugeReadersMu.RUnlock()

	cfg, ok := gaugeReaders[scheme]
	return cfg, ok
}

// ListGaugeReaders returns all registered scheme keys.
func ListGaugeReaders() []string {
	gaugeReadersMu.RLock()
	defer gaugeReadersMu.RUnlock()

	keys := make([]string, 0, len(gaugeReaders))
	for k := range gaugeReaders {
		keys = append(keys, k)
	}
	return keys
}
