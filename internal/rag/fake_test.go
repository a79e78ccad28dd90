package rag

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
)

// wordEmbedder embeds text as word counts over a fixed vocabulary plus a
// constant bias component, so no vector is ever all zeros.
type wordEmbedder struct {
	vocab []string
	calls atomic.Int64
	// failOn makes Embed fail when any input contains it.
	failOn string
	// dimOverride, when non-zero, truncates or pads vectors to this length.
	dimOverride int
}

var errEmbedFailed = errors.New("embed failed")

func newWordEmbedder(vocab ...string) *wordEmbedder {
	return &wordEmbedder{vocab: vocab}
}

func (e *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if e.failOn != "" && strings.Contains(t, e.failOn) {
			return nil, errEmbedFailed
		}
		v := make([]float32, len(e.vocab)+1)
		v[len(e.vocab)] = 0.1
		for _, w := range strings.Fields(strings.ToLower(t)) {
			w = strings.Trim(w, ".,?!")
			for j, term := range e.vocab {
				if w == term {
					v[j]++
				}
			}
		}
		if e.dimOverride > 0 {
			resized := make([]float32, e.dimOverride)
			copy(resized, v)
			v = resized
		}
		out[i] = v
	}
	return out, nil
}
