package csv

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioperiant/bp12-tools/internal/domain"
)

func TestParse(t *testing.T) {
	in := "time,value\n2005-01-05,1.5\n2005-01-10,\n2005-01-15, NaN\n"
	times, values, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, times, 3)
	assert.Equal(t, time.Date(2005, 1, 5, 12, 0, 0, 0, time.UTC), times[0])
	assert.Equal(t, 1.5, values[0])
	assert.True(t, math.IsNaN(values[1]))
	assert.True(t, math.IsNaN(values[2]))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"bad header", "date,value\n2005-01-05,1\n"},
		{"bad time", "time,value\n05/01/2005,1\n"},
		{"bad value", "time,value\n2005-01-05,abc\n"},
		{"no rows", "time,value\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestWriteLoadList(t *testing.T) {
	dir := t.TempDir()
	s := NewSeriesStore(dir)

	times := domain.PentadAxis(2005, 2005)[:4]
	a, err := domain.NewSeries("chl_16", times, []float64{0.2, math.NaN(), 0.4, 0.3})
	require.NoError(t, err)
	require.NoError(t, s.Write("chl_16", a))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ObsDir, "README.txt"), []byte("x"), 0o600))

	got, err := s.Load("chl_16")
	require.NoError(t, err)
	assert.Equal(t, times, got.Times)
	assert.Equal(t, 0.4, got.Values[2])
	assert.True(t, math.IsNaN(got.Values[1]))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"chl_16"}, names)

	_, err = s.Load("../secret")
	assert.Error(t, err)
	_, err = s.Load("absent")
	assert.Error(t, err)
}

func TestListMissingDir(t *testing.T) {
	names, err := NewSeriesStore(t.TempDir()).List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
