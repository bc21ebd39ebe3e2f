// Package retrieval ranks document chunks against a question. The default
// backend is an in-memory TF-IDF index over a docs directory; a pgvector
// backend is available for larger corpora.
package retrieval

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// DefaultInclude selects the files indexed when no globs are configured.
var DefaultInclude = []string{"**/*.md"}

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// Chunk is one paragraph of one document.
type Chunk struct {
	ID      string
	Content string
	Source  string
	Index   int
}

// Doc converts the chunk into a scored retrieval result.
func (c Chunk) Doc(score float64) core.Doc {
	return core.Doc{ID: c.ID, Content: c.Content, Source: c.Source, Score: score}
}

// LoadChunks reads every file under dir matching one of the include globs
// and splits it on blank lines. Chunk ids are "<path without extension>::chunk<i>"
// where i is the position among the split pieces. A run of blank lines is
// one separator, but an empty leading piece still takes index 0.
func LoadChunks(dir string, include []string) ([]Chunk, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.ErrNotFound("docs directory", dir)
		}
		return nil, fmt.Errorf("checking docs directory: %w", err)
	}
	if !info.IsDir() {
		return nil, core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("docs path %s is not a directory", dir))
	}
	if len(include) == 0 {
		include = DefaultInclude
	}

	fsys := os.DirFS(dir)
	files, err := matchFiles(fsys, include)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		chunks = append(chunks, splitParagraphs(name, string(data))...)
	}
	return chunks, nil
}

func matchFiles(fsys fs.FS, include []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("invalid include pattern %q", pattern))
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func splitParagraphs(name, content string) []Chunk {
	stem := strings.TrimSuffix(name, path.Ext(name))
	var chunks []Chunk
	for i, para := range paragraphSep.Split(content, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			ID:      fmt.Sprintf("%s::chunk%d", stem, i),
			Content: para,
			Source:  name,
			Index:   i,
		})
	}
	return chunks
}
