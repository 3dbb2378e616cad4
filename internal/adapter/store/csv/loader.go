// Package csv loads observational time series stored as CSV.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bioperiant/bp12-tools/internal/domain"
)

// ObsDir is the directory holding observation series under the data directory.
const ObsDir = "OBS"

const suffix = ".csv"

// SeriesStore provides access to observation time series.
type SeriesStore struct {
	dataDir string
}

// NewSeriesStore creates a new CSV-based series store.
func NewSeriesStore(dataDir string) *SeriesStore {
	return &SeriesStore{
		dataDir: dataDir,
	}
}

// Path returns the file holding a named series.
func (s *SeriesStore) Path(name string) string {
	return filepath.Join(s.dataDir, ObsDir, name+suffix)
}

// Load reads a named series. Empty or NaN values are kept as NaN.
func (s *SeriesStore) Load(name string) (*domain.DataArray, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid series name %q", name)
	}

	//nolint:gosec // G304: File path constructed from dataDir (config) and name (validated).
	file, err := os.Open(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file for series %s: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	times, values, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", name, err)
	}
	return domain.NewSeries(name, times, values)
}

// Parse reads `time,value` rows.
func Parse(r io.Reader) ([]time.Time, []float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	expectedHeaders := []string{"time", "value"}
	if len(header) != len(expectedHeaders) {
		return nil, nil, fmt.Errorf("invalid CSV header: expected %v, got %v", expectedHeaders, header)
	}
	for i, h := range header {
		if strings.TrimSpace(h) != expectedHeaders[i] {
			return nil, nil, fmt.Errorf("invalid CSV header: expected column %d to be %s, got %s", i, expectedHeaders[i], h)
		}
	}

	var (
		times  []time.Time
		values []float64
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		ts, err := time.Parse(time.DateOnly, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid time %q: %w", record[0], err)
		}
		v := math.NaN()
		if raw := strings.TrimSpace(record[1]); raw != "" {
			if v, err = strconv.ParseFloat(raw, 64); err != nil {
				return nil, nil, fmt.Errorf("invalid value at %s: %w", record[0], err)
			}
		}
		times = append(times, ts.Add(12*time.Hour))
		values = append(values, v)
	}

	if len(times) == 0 {
		return nil, nil, errors.New("no rows in CSV")
	}
	return times, values, nil
}

// List returns the available series names, sorted.
func (s *SeriesStore) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, ObsDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read observation directory: %w", err)
	}

	names := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, suffix) {
			names = append(names, strings.TrimSuffix(name, suffix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Write stores a series in the same format Load reads.
func (s *SeriesStore) Write(name string, a *domain.DataArray) error {
	if len(a.Times) != a.Size() {
		return fmt.Errorf("series %s: %d times for %d values", name, len(a.Times), a.Size())
	}
	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // Data directories are shared.
		return fmt.Errorf("failed to create observation directory: %w", err)
	}
	file, err := os.Create(path) //nolint:gosec // G304: path built from dataDir and name.
	if err != nil {
		return fmt.Errorf("failed to create CSV file for series %s: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"time", "value"}); err != nil {
		return err
	}
	for i, ts := range a.Times {
		v := ""
		if !math.IsNaN(a.Values[i]) {
			v = strconv.FormatFloat(a.Values[i], 'g', -1, 64)
		}
		if err := w.Write([]string{ts.Format(time.DateOnly), v}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
