package feed

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// ImportCSVFile reads a broker OHLC export from path. Timestamps are
// interpreted in loc; nil means UTC.
func ImportCSVFile(path string, loc *time.Location) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	bars, err := ImportCSV(f, loc)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return bars, nil
}

// ImportCSV parses a broker OHLC export. MT4-style exports are UTF-16
// with a BOM; the BOM is detected and the stream decoded to UTF-8
// before parsing. Two row layouts are accepted:
//
//	date,time,open,high,low,close[,volume]   (date "2006.01.02", time "15:04")
//	timestamp,open,high,low,close[,volume]   (timestamp RFC3339 or "2006.01.02 15:04")
//
// A header row is skipped when the first price field does not parse.
// Bars are returned sorted by start time; duplicate start times are an
// error.
func ImportCSV(r io.Reader, loc *time.Location) ([]domain.Bar, error) {
	if loc == nil {
		loc = time.UTC
	}

	br := bufio.NewReader(r)

	// Detect UTF-16 BOM; if present, decode to UTF-8.
	if b, _ := br.Peek(2); len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		br = bufio.NewReader(transform.NewReader(br, dec))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var bars []domain.Bar
	seen := make(map[int64]bool)
	line := 0

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++

		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: expected at least 5 fields, got %d", line, len(rec))
		}

		b, ok, err := parseRow(rec, loc)
		if err != nil {
			if line == 1 {
				// Header row.
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			continue
		}

		if seen[b.Start.Unix()] {
			return nil, fmt.Errorf("line %d: duplicate bar at %s", line, b.Start.Format(time.RFC3339))
		}
		seen[b.Start.Unix()] = true
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Start.Before(bars[j].Start)
	})
	return bars, nil
}

func parseRow(rec []string, loc *time.Location) (domain.Bar, bool, error) {
	var (
		start  time.Time
		prices []string
		err    error
	)

	// MT4 layout splits date and time into the first two fields.
	if len(rec) >= 6 {
		start, err = time.ParseInLocation("2006.01.02 15:04", rec[0]+" "+rec[1], loc)
		if err == nil {
			prices = rec[2:6]
		}
	}

	if prices == nil {
		start, err = parseTimestamp(rec[0], loc)
		if err != nil {
			return domain.Bar{}, false, fmt.Errorf("parse timestamp %q: %w", rec[0], err)
		}
		prices = rec[1:5]
	}

	b := domain.Bar{Start: start.UTC()}
	dst := []*float64{&b.Open, &b.High, &b.Low, &b.Close}
	for i, s := range prices {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Bar{}, false, fmt.Errorf("parse price %q: %w", s, err)
		}
		*dst[i] = v
	}
	return b, true, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006.01.02 15:04", s, loc)
}
