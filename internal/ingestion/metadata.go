package ingestion

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// InferredMetadata holds the kind, extension, title and doc type inferred
// from a document's source path or URL. It is attached to every chunk so
// answers can be traced back to their source.
type InferredMetadata struct {
	// Kind is "file" for local documents and "web" for fetched pages.
	Kind string
	// Ext is the lower-cased file extension without the dot ("txt", "md").
	Ext string
	// Title is a human-readable name derived from the last path element.
	Title string
	// DocType classifies the document (policy, faq, guide, reference).
	DocType string
}

// docTypeKeywords maps path segments and file-name words to a doc type.
// The first match scanning the source from left to right wins.
var docTypeKeywords = map[string]string{
	"policy":   "policy",
	"policies": "policy",
	"terms":    "policy",
	"faq":      "faq",
	"faqs":     "faq",
	"help":     "faq",
	"guide":    "guide",
	"guides":   "guide",
	"tutorial": "guide",
	"howto":    "guide",
	"docs":     "reference",
	"api":      "reference",
	"manual":   "reference",
}

// InferMetadata inspects a document source and returns best-effort metadata.
// Sources with an http or https scheme are treated as web pages, anything
// else as a local file path. Unknown doc types default to "reference".
func InferMetadata(source string) InferredMetadata {
	m := InferredMetadata{Kind: "file", DocType: "reference"}

	var p string
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		m.Kind = "web"
		p = strings.TrimSuffix(u.Path, "/")
		if p == "" {
			m.Title = u.Hostname()
		}
	} else {
		p = filepath.ToSlash(source)
	}

	base := path.Base(p)
	if base != "." && base != "/" && p != "" {
		ext := path.Ext(base)
		m.Ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		m.Title = titleFrom(strings.TrimSuffix(base, ext))
	}

	for _, seg := range words(strings.ToLower(p)) {
		if dt, ok := docTypeKeywords[seg]; ok {
			m.DocType = dt
			break
		}
	}
	return m
}

// asMap renders the metadata as the chunk metadata map, omitting empty fields.
func (m InferredMetadata) asMap(source string) map[string]string {
	out := map[string]string{"source": source, "kind": m.Kind, "doc_type": m.DocType}
	if m.Ext != "" {
		out["ext"] = m.Ext
	}
	if m.Title != "" {
		out["title"] = m.Title
	}
	return out
}

// titleFrom turns "refund_policy-v2" into "Refund policy v2".
func titleFrom(name string) string {
	name = strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}), " ")
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// words splits a path into lower-case words on separators and punctuation.
func words(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '_' || r == '-' || r == '.' || r == ' '
	})
}
