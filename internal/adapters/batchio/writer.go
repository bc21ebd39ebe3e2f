package batchio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/fsutil"
)

// WriteResults encodes results as JSON Lines, one per question, in order.
func WriteResults(w io.Writer, results []core.Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, r := range results {
		if r.Citations == nil {
			r.Citations = []string{}
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding result %d (%s): %w", i, r.ID, err)
		}
	}
	return nil
}

// WriteResultsFile replaces path with the encoded results. Readers see
// either the previous file or the complete new one.
func WriteResultsFile(path string, results []core.Result) error {
	var buf bytes.Buffer
	if err := WriteResults(&buf, results); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
