package chunking

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewSplitter_Validation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		size, overlap int
		wantErr       bool
	}{
		{1000, 200, false},
		{10, 0, false},
		{10, 9, false},
		{10, 10, true},
		{10, 11, true},
		{0, 0, true},
		{-1, 0, true},
		{10, -1, true},
	}
	for _, tc := range cases {
		_, err := NewSplitter(tc.size, tc.overlap)
		if tc.wantErr && !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewSplitter(%d, %d) error = %v, want ErrInvalidConfig", tc.size, tc.overlap, err)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("NewSplitter(%d, %d) unexpected error: %v", tc.size, tc.overlap, err)
		}
	}
}

func sampleText() string {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Refunds are issued within thirty days of purchase. ")
		if i%5 == 4 {
			b.WriteString("\n\n")
		}
	}
	b.WriteString("Contact support for anything else")
	return b.String()
}

func TestSplit_Invariants(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name          string
		text          string
		size, overlap int
	}{
		{"prose defaults", sampleText(), DefaultSize, DefaultOverlap},
		{"prose small", sampleText(), 120, 30},
		{"no overlap", sampleText(), 100, 0},
		{"no whitespace", strings.Repeat("x", 1234), 100, 10},
		{"multibyte", strings.Repeat("héllo wörld ünïcode ", 60), 50, 7},
		{"shorter than size", "short text", 100, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			chunks, err := Split([]Document{{Source: "doc.txt", Text: tc.text}}, tc.size, tc.overlap)
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			if len(chunks) == 0 {
				t.Fatal("want at least one chunk")
			}

			var rebuilt strings.Builder
			for i, c := range chunks {
				if n := utf8.RuneCountInString(c.Text); n > tc.size {
					t.Errorf("chunk %d length %d exceeds size %d", i, n, tc.size)
				}
				if c.Index != i {
					t.Errorf("chunk %d has Index %d", i, c.Index)
				}
				if c.End-c.Start != utf8.RuneCountInString(c.Text) {
					t.Errorf("chunk %d offsets [%d,%d) do not match text length", i, c.Start, c.End)
				}
				if i == 0 {
					rebuilt.WriteString(c.Text)
					continue
				}
				prev := chunks[i-1]
				if prev.End-c.Start != tc.overlap {
					t.Errorf("chunks %d/%d share %d chars, want %d", i-1, i, prev.End-c.Start, tc.overlap)
				}
				prevRunes := []rune(prev.Text)
				curRunes := []rune(c.Text)
				if string(prevRunes[len(prevRunes)-tc.overlap:]) != string(curRunes[:tc.overlap]) {
					t.Errorf("chunk %d does not begin with the tail of chunk %d", i, i-1)
				}
				rebuilt.WriteString(string(curRunes[tc.overlap:]))
			}
			if rebuilt.String() != tc.text {
				t.Error("concatenation with overlap removed does not reconstruct the document")
			}
			if last := chunks[len(chunks)-1]; last.End != utf8.RuneCountInString(tc.text) {
				t.Errorf("last chunk ends at %d, want document end", last.End)
			}
		})
	}
}

func TestSplit_PrefersParagraphBreak(t *testing.T) {
	t.Parallel()
	text := "First paragraph sentence one. Sentence two.\n\nSecond paragraph goes on and on without stopping"
	chunks, err := Split([]Document{{Source: "a", Text: text}}, 60, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if !strings.HasSuffix(chunks[0].Text, "\n\n") {
		t.Errorf("first chunk = %q, want it to end at the paragraph break", chunks[0].Text)
	}
}

func TestSplit_PrefersSentenceOverSpace(t *testing.T) {
	t.Parallel()
	text := "One short sentence. Then a long clause that keeps going past the limit"
	chunks, err := Split([]Document{{Source: "a", Text: text}}, 40, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if chunks[0].Text != "One short sentence. " {
		t.Errorf("first chunk = %q, want sentence boundary", chunks[0].Text)
	}
}

func TestSplit_MultipleDocuments(t *testing.T) {
	t.Parallel()
	docs := []Document{
		{Source: "a.txt", Text: strings.Repeat("alpha ", 50), Metadata: map[string]string{"kind": "file"}},
		{Source: "blank.txt", Text: " \n\t "},
		{Source: "b.txt", Text: strings.Repeat("beta ", 50)},
	}
	chunks, err := Split(docs, 80, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	seenB := false
	for _, c := range chunks {
		switch c.Source {
		case "a.txt":
			if seenB {
				t.Fatal("a.txt chunk after b.txt chunk: document order not preserved")
			}
			if strings.Contains(c.Text, "beta") {
				t.Errorf("chunk from a.txt contains text from b.txt: %q", c.Text)
			}
			if c.Metadata["kind"] != "file" {
				t.Errorf("document metadata not copied onto chunk")
			}
		case "b.txt":
			seenB = true
			if c.Index == 0 && c.Start != 0 {
				t.Errorf("first b.txt chunk starts at %d, want 0", c.Start)
			}
		default:
			t.Errorf("unexpected chunk source %q", c.Source)
		}
	}
	if !seenB {
		t.Error("no chunks from b.txt")
	}
}

func TestChunkID_Deterministic(t *testing.T) {
	t.Parallel()
	if ChunkID("a.txt", 0) != ChunkID("a.txt", 0) {
		t.Error("ChunkID not deterministic")
	}
	if ChunkID("a.txt", 0) == ChunkID("a.txt", 1) {
		t.Error("ChunkID collides across indexes")
	}
	if ChunkID("a.txt", 1) == ChunkID("b.txt", 1) {
		t.Error("ChunkID collides across sources")
	}
}
