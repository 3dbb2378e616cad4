package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioperiant/bp12-tools/internal/synth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func fixtureDirs(t *testing.T) (modelDir, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	modelDir, dataDir = filepath.Join(dir, "model"), filepath.Join(dir, "data")
	gen := synth.New(synth.RegionalGrid{LatMin: -76, LatMax: -40, LonStart: 73, Resolution: 4, Depths: []float64{5, 50}}, nil)
	_, err := gen.WriteModel(modelDir, "y2003m02")
	require.NoError(t, err)
	require.NoError(t, gen.WriteReference(dataDir))
	return modelDir, dataDir
}

func TestDatesAndInfo(t *testing.T) {
	out, err := run(t, "dates", "y2003m02")
	require.NoError(t, err)
	var dates struct {
		Tags []string `json:"tags"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &dates))
	assert.Len(t, dates.Tags, 5)

	out, err = run(t, "info", "votemper")
	require.NoError(t, err)
	assert.Contains(t, out, `"long_name": "Temperature"`)

	_, err = run(t, "info", "unknown_var")
	assert.Error(t, err)

	out, err = run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bp12 v"+version)
}

func TestSeriesCommand(t *testing.T) {
	modelDir, dataDir := fixtureDirs(t)
	out, err := run(t, "series", "votemper", "y2003m02", "--biome", "16", "--test", "original",
		"--model-dir", modelDir, "--data-dir", dataDir)
	require.NoError(t, err)

	var resp struct {
		Region string            `json:"region"`
		Points []json.RawMessage `json:"points"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "biome 16", resp.Region)
	assert.Len(t, resp.Points, 5)

	_, err = run(t, "series", "votemper", "y2003m02", "--lat", "-50", "--model-dir", modelDir, "--data-dir", dataDir)
	assert.Error(t, err)
}

func TestFigureCommands(t *testing.T) {
	modelDir, dataDir := fixtureDirs(t)
	dir := t.TempDir()

	mapPath := filepath.Join(dir, "sst.svg")
	_, err := run(t, "map", "votemper", "y2003m02", "--fronts", "--month", "2", "--biomes",
		"-o", mapPath, "--model-dir", modelDir, "--data-dir", dataDir)
	require.NoError(t, err)
	info, err := os.Stat(mapPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	tsPath := filepath.Join(dir, "ts.png")
	_, err = run(t, "timeseries", "votemper,somxl010", "y2003m02", "--biome", "17", "--dpi", "30",
		"-o", tsPath, "--model-dir", modelDir, "--data-dir", dataDir)
	require.NoError(t, err)
	_, err = os.Stat(tsPath)
	require.NoError(t, err)

	_, err = run(t, "map", "votemper", "y2003m02", "--min", "0", "--model-dir", modelDir, "--data-dir", dataDir)
	assert.Error(t, err)
}
