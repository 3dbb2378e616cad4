package domain

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPentadTags_FullYear(t *testing.T) {
	tags := PentadTags(2005)

	require.Len(t, tags, 73)
	assert.Equal(t, PentadsPerYear, len(tags))
	assert.Equal(t, "y2005m01d05", tags[0])
	assert.Equal(t, "y2005m12d31", tags[len(tags)-1])
	assert.True(t, sort.StringsAreSorted(tags), "tags should be in calendar order")

	perMonth := map[string]int{}
	for _, tag := range tags {
		perMonth[tag[5:8]]++
	}
	assert.Equal(t, 5, perMonth["m02"])
	assert.Equal(t, 7, perMonth["m03"])
	assert.Equal(t, 6, perMonth["m08"])
	assert.Equal(t, 7, perMonth["m12"])
}

func TestDecodeDateSpec(t *testing.T) {
	tests := []struct {
		spec    string
		kind    DateSpecKind
		nTags   int
		first   string
		wantErr bool
	}{
		{spec: "2005", kind: SpecYear, nTags: 73, first: "y2005m01d05"},
		{spec: "y2001", kind: SpecYear, nTags: 73, first: "y2001m01d05"},
		{spec: "y2005m02", kind: SpecYearMonth, nTags: 5, first: "y2005m02d04"},
		{spec: "y2005m03", kind: SpecYearMonth, nTags: 7, first: "y2005m03d01"},
		{spec: "y2005m03d06", kind: SpecDate, nTags: 1, first: "y2005m03d06"},
		{spec: "1988", wantErr: true},
		{spec: "2010", wantErr: true},
		{spec: "y2005m13", wantErr: true},
		{spec: "x2005", wantErr: true},
		{spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			ds, err := DecodeDateSpec(tt.spec)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDateSpec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ds.Kind)
			tags := ds.Tags()
			require.Len(t, tags, tt.nTags)
			assert.Equal(t, tt.first, tags[0])
		})
	}
}

func TestDecodeDateSpec_MonthFilterKeepsOnlyThatMonth(t *testing.T) {
	ds, err := DecodeDateSpec("y2003m11")
	require.NoError(t, err)
	for _, tag := range ds.Tags() {
		assert.True(t, strings.HasPrefix(tag, "y2003m11d"), tag)
	}
}

func TestTagTime(t *testing.T) {
	ts, err := TagTime("y2004m02d24")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2004, 2, 24, 12, 0, 0, 0, time.UTC), ts)

	_, err = TagTime("2004-02-24")
	assert.ErrorIs(t, err, ErrInvalidDateSpec)
}

func TestPentadAxis(t *testing.T) {
	axis := PentadAxis(2000, 2001)
	require.Len(t, axis, 2*PentadsPerYear)
	for i := 1; i < len(axis); i++ {
		assert.True(t, axis[i].After(axis[i-1]))
	}
	assert.Equal(t, 12, axis[0].Hour())
}
