package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Indents used by the two result files.
const (
	TranscriptsIndent = 4
	ChannelIndent     = 2
)

// WriteJSON encodes v as an indented JSON array. HTML characters are not
// escaped so titles stay readable.
func WriteJSON(w io.Writer, v any, indent int) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", strings.Repeat(" ", indent))
	return enc.Encode(v)
}

// SaveJSON writes v to path, creating parent directories. The file is
// written to a temp sibling and renamed into place.
func SaveJSON(path string, v any, indent int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, v, indent); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadRecords reads a JSON array of VideoRecords.
func LoadRecords(path string) ([]VideoRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []VideoRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return recs, nil
}

// FormatChannelSummary renders the original -> recommended listing.
func FormatChannelSummary(results []ChannelTitle) string {
	var sb strings.Builder
	sb.WriteString("Title Recommendations:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "\n%d. %s\n   -> Recommended: %s\n   Video: %s\n", i+1, r.OriginalTitle, r.RecommendedTitle, r.URL)
	}
	return sb.String()
}
