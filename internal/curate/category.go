// Package curate narrows the trending-videos dataset down to the rows worth
// training on: first by category, then by an LLM judgment of the title.
package curate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultCategory is Science & Technology.
const DefaultCategory = 28

// OutputColumns is the projection written by FilterCategory.
var OutputColumns = []string{
	"video_id",
	"title",
	"publishedAt",
	"channelId",
	"channelTitle",
	"categoryId",
	"trending_date",
	"tags",
	"view_count",
	"likes",
	"dislikes",
	"comment_count",
}

// CategoryStats summarises a FilterCategory pass.
type CategoryStats struct {
	Scanned    int
	Matched    int
	Duplicates int
	Written    int
}

// FilterCategory streams a trending CSV from r, keeps rows of the given
// category, drops repeated video_ids (first wins) and writes OutputColumns
// to w. Zero matches still writes the header.
func FilterCategory(r io.Reader, w io.Writer, category int) (CategoryStats, error) {
	var stats CategoryStats

	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header, OutputColumns)
	if err != nil {
		return stats, err
	}
	catCol := idx["categoryId"]
	idCol := idx["video_id"]

	cw := csv.NewWriter(w)
	if err := cw.Write(OutputColumns); err != nil {
		return stats, err
	}

	seen := make(map[string]struct{})
	out := make([]string, len(OutputColumns))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", stats.Scanned+1, err)
		}
		stats.Scanned++
		if len(rec) < len(header) || !matchesCategory(rec[catCol], category) {
			continue
		}
		stats.Matched++

		id := rec[idCol]
		if _, dup := seen[id]; dup {
			stats.Duplicates++
			continue
		}
		seen[id] = struct{}{}

		for i, col := range OutputColumns {
			out[i] = rec[idx[col]]
		}
		if err := cw.Write(out); err != nil {
			return stats, err
		}
		stats.Written++
	}

	cw.Flush()
	return stats, cw.Error()
}

func matchesCategory(v string, category int) bool {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return n == category
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == float64(category)
}

// columnIndex maps each wanted column to its position in header.
func columnIndex(header, want []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	idx := make(map[string]int, len(want))
	var missing []string
	for _, c := range want {
		i, ok := pos[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		idx[c] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}
