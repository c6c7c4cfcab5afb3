package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

func init() {
	RegisterGaugeReader(GaugeReaderConfig{
		Scheme: "http",
		Name:   "HTTP JSON gauge",
		Read:   readHTTPJSON,
	})
	RegisterGaugeReader(GaugeReaderConfig{
		Scheme: "https",
		Name:   "HTTPS JSON gauge",
		Read:   readHTTPJSON,
	})
	RegisterGaugeReader(GaugeReaderConfig{
		Scheme: "file",
		Name:   "File gauge",
		Read:   readFile,
	})
}

// ReadLevel dispatches a source URL to the reader registered for its scheme.
func ReadLevel(ctx context.Context, source string) (uint64, error) {
	u, err := url.Parse(source)
	if err != nil {
		return 0, fmt.Errorf("parse telemetry source %q: %w", source, err)
	}
	reader, ok := GetGaugeReader(u.Scheme)
	if !ok {
		return 0, fmt.Errorf("no gauge reader for scheme %q", u.Scheme)
	}
	return reader.Read(ctx, source)
}

var httpClient = &http.Client{Timeout: 15 * time.Second}

// gaugeReading is the payload shape exposed by HTTP gauges.
type gaugeReading struct {
	Level uint64 `json:"level"`
}

func readHTTPJSON(ctx context.Context, source string) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", source, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch gauge %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("gauge %s returned status %d", source, resp.StatusCode)
	}

	var reading gaugeReading
	if err := json.NewDecoder(resp.Body).Decode(&reading); err != nil {
		return 0, fmt.Errorf("decode gauge %s: %w", source, err)
	}
	return reading.Level, nil
}

// readFile reads a plain-integer level from a local file. Useful for gauges
// that write readings to a mounted path, and for tests.
func readFile(ctx context.Context, source string) (uint64, error) {
	u, err := url.Parse(source)
	if err != nil {
		return 0, err
	}
	path := u.Path
	if u.Opaque != "" {
		path = u.Opaque
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read gauge file %s: %w", path, err)
	}
	level, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse gauge file %s: %w", path, err)
	}
	return level, nil
}
