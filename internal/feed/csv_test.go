package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func TestImportCSV_MT4Layout(t *testing.T) {
	input := "2025.04.08,08:00,150.100,150.450,149.900,150.300,1200\n" +
		"2025.04.08,12:00,150.300,150.800,150.250,150.700,900\n"

	bars, err := ImportCSV(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC), bars[0].Start)
	assert.InDelta(t, 150.10, bars[0].Open, 1e-9)
	assert.InDelta(t, 150.45, bars[0].High, 1e-9)
	assert.InDelta(t, 149.90, bars[0].Low, 1e-9)
	assert.InDelta(t, 150.30, bars[0].Close, 1e-9)
}

func TestImportCSV_HeaderSkippedAndSorted(t *testing.T) {
	input := "time,open,high,low,close\n" +
		"2025-04-08T12:00:00Z,150.300,150.800,150.250,150.700\n" +
		"2025-04-08T08:00:00Z,150.100,150.450,149.900,150.300\n"

	bars, err := ImportCSV(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Start.Before(bars[1].Start))
	assert.Equal(t, time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC), bars[0].Start)
}

func TestImportCSV_BrokerTimezone(t *testing.T) {
	// MT4 server time UTC+2: 08:00 broker time is 06:00 UTC.
	loc := time.FixedZone("EET", 2*3600)
	input := "2025.04.08,08:00,150.100,150.450,149.900,150.300\n"

	bars, err := ImportCSV(strings.NewReader(input), loc)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, time.Date(2025, 4, 8, 6, 0, 0, 0, time.UTC), bars[0].Start)
}

func TestImportCSV_UTF16LE(t *testing.T) {
	plain := "2025.04.08,08:00,150.100,150.450,149.900,150.300\n" +
		"2025.04.08,12:00,150.300,150.800,150.250,150.700\n"

	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	encoded, _, err := transform.String(enc, plain)
	require.NoError(t, err)

	bars, err := ImportCSV(strings.NewReader(encoded), nil)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC), bars[0].Start)
	assert.InDelta(t, 150.70, bars[1].Close, 1e-9)
}

func TestImportCSV_DuplicateBar(t *testing.T) {
	input := "2025.04.08,08:00,150.100,150.450,149.900,150.300\n" +
		"2025.04.08,08:00,150.100,150.450,149.900,150.300\n"

	_, err := ImportCSV(strings.NewReader(input), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate bar")
}

func TestImportCSV_BadPrice(t *testing.T) {
	input := "2025.04.08,08:00,150.100,150.450,149.900,150.300\n" +
		"2025.04.08,12:00,150.300,x,150.250,150.700\n"

	_, err := ImportCSV(strings.NewReader(input), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
