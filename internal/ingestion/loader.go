package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"

	"github.com/54b3r/kassist-go/internal/chunking"
)

// DefaultGlob selects plain-text files at any depth.
const DefaultGlob = "**/*.txt"

// matcher compiles a slash-separated glob. A leading "**/" also matches files
// at the root of the directory, so "**/*.txt" picks up "a.txt" as well as
// "sub/b.txt".
type matcher struct {
	full glob.Glob
	root glob.Glob
}

func newMatcher(pattern string) (*matcher, error) {
	if pattern == "" {
		pattern = DefaultGlob
	}
	full, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("ingestion: invalid glob %q: %w", pattern, err)
	}
	m := &matcher{full: full}
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		root, err := glob.Compile(rest, '/')
		if err != nil {
			return nil, fmt.Errorf("ingestion: invalid glob %q: %w", pattern, err)
		}
		m.root = root
	}
	return m, nil
}

func (m *matcher) Match(rel string) bool {
	if m.full.Match(rel) {
		return true
	}
	return m.root != nil && !strings.Contains(rel, "/") && m.root.Match(rel)
}

// LoadDir reads every file under dir whose slash-separated relative path
// matches pattern, in lexical path order. Files that are not text (by content
// sniffing) or not valid UTF-8 are skipped with a warning through skip.
// Blank files are skipped silently.
func LoadDir(ctx context.Context, dir, pattern string, skip func(path, reason string)) ([]chunking.Document, error) {
	if skip == nil {
		skip = func(string, string) {}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("ingestion: docs dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingestion: docs dir %q is not a directory", dir)
	}
	m, err := newMatcher(pattern)
	if err != nil {
		return nil, err
	}

	var docs []chunking.Document
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !m.Match(rel) {
			return nil
		}

		mtype, err := mimetype.DetectFile(p)
		if err != nil {
			return fmt.Errorf("ingestion: detect type of %s: %w", rel, err)
		}
		if !isText(mtype) {
			skip(rel, "not a text file ("+mtype.String()+")")
			return nil
		}

		raw, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("ingestion: read %s: %w", rel, err)
		}
		if !utf8.Valid(raw) {
			skip(rel, "not valid UTF-8")
			return nil
		}
		text := string(raw)
		if strings.TrimSpace(text) == "" {
			return nil
		}
		docs = append(docs, chunking.Document{
			Source:   rel,
			Text:     text,
			Metadata: InferMetadata(rel).asMap(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingestion: walk %s: %w", dir, err)
	}
	return docs, nil
}

// isText reports whether mtype is text/plain or descends from it.
func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
