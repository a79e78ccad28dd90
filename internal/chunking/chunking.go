// Package chunking splits loaded documents into overlapping chunks suitable
// for embedding. Boundaries prefer paragraph breaks, then sentence ends, then
// whitespace, and fall back to a hard cut. Sizes and offsets are counted in
// runes, so multi-byte text is never split inside a character.
package chunking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	// DefaultSize is the default maximum chunk length in characters.
	DefaultSize = 1000

	// DefaultOverlap is the default number of characters shared by
	// consecutive chunks of the same document.
	DefaultOverlap = 200
)

// ErrInvalidConfig is returned when size and overlap violate 0 <= overlap < size.
var ErrInvalidConfig = errors.New("chunking: invalid chunk configuration")

// Document is a loaded source text.
type Document struct {
	// Source identifies where the text came from (file path or URL).
	Source string

	// Text is the full document content.
	Text string

	// Metadata is copied onto every chunk produced from this document.
	Metadata map[string]string
}

// Chunk is a contiguous piece of a Document.
type Chunk struct {
	// ID is a deterministic UUIDv5 derived from Source and Index.
	ID string

	// Source is the originating Document's Source.
	Source string

	// Index is the position of this chunk within its document.
	Index int

	// Start and End are rune offsets into the document text, End exclusive.
	Start int
	End   int

	// Text is the chunk content; it owns its copy of the characters.
	Text string

	// Metadata holds the document metadata plus chunk_index, start and end.
	Metadata map[string]string
}

// Splitter holds a validated size/overlap pair.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter returns a Splitter or ErrInvalidConfig when overlap is negative,
// size is not positive, or overlap >= size.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidConfig, size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split is a convenience wrapper around NewSplitter and Splitter.Split.
func Split(docs []Document, size, overlap int) ([]Chunk, error) {
	s, err := NewSplitter(size, overlap)
	if err != nil {
		return nil, err
	}
	return s.Split(docs), nil
}

// Split chunks every document in order. Chunks never span two documents.
func (s *Splitter) Split(docs []Document) []Chunk {
	var out []Chunk
	for _, doc := range docs {
		out = append(out, s.splitDocument(doc)...)
	}
	return out
}

func (s *Splitter) splitDocument(doc Document) []Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}
	runes := []rune(doc.Text)

	var chunks []Chunk
	for _, sp := range s.spans(runes) {
		idx := len(chunks)
		meta := make(map[string]string, len(doc.Metadata)+3)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta["chunk_index"] = strconv.Itoa(idx)
		meta["start"] = strconv.Itoa(sp.start)
		meta["end"] = strconv.Itoa(sp.end)

		chunks = append(chunks, Chunk{
			ID:       ChunkID(doc.Source, idx),
			Source:   doc.Source,
			Index:    idx,
			Start:    sp.start,
			End:      sp.end,
			Text:     string(runes[sp.start:sp.end]),
			Metadata: meta,
		})
	}
	return chunks
}

type span struct{ start, end int }

// spans computes chunk windows over runes. Each window after the first
// starts exactly overlap runes before the previous window's end, and the last
// window ends at len(runes).
func (s *Splitter) spans(runes []rune) []span {
	n := len(runes)
	var out []span
	start := 0
	for {
		if n-start <= s.size {
			out = append(out, span{start, n})
			return out
		}
		end := s.boundary(runes, start)
		out = append(out, span{start, end})
		start = end - s.overlap
	}
}

// boundary picks the end of the window beginning at start. Candidate ends lie
// in (start+overlap, start+size] so that the next window always advances.
func (s *Splitter) boundary(runes []rune, start int) int {
	lo := start + s.overlap + 1
	hi := start + s.size

	for _, match := range []func([]rune, int) bool{isParagraphEnd, isSentenceEnd, isSpaceEnd} {
		for p := hi; p >= lo; p-- {
			if match(runes, p) {
				return p
			}
		}
	}
	return hi
}

// isParagraphEnd reports whether p sits just after a blank line.
func isParagraphEnd(runes []rune, p int) bool {
	return p >= 2 && runes[p-1] == '\n' && runes[p-2] == '\n'
}

// isSentenceEnd reports whether p sits just after a line break or after
// terminal punctuation followed by whitespace.
func isSentenceEnd(runes []rune, p int) bool {
	if p < 1 {
		return false
	}
	if runes[p-1] == '\n' {
		return true
	}
	if p < 2 || !unicode.IsSpace(runes[p-1]) {
		return false
	}
	switch runes[p-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

func isSpaceEnd(runes []rune, p int) bool {
	return p >= 1 && unicode.IsSpace(runes[p-1])
}

// ChunkID returns the deterministic identifier for chunk index of source.
func ChunkID(source string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(source+"#"+strconv.Itoa(index))).String()
}
