package extract

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ostrab/kpdl/internal/util"
)

// Chunk is one viewer page worth of novel content.
type Chunk struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// minimum sizes below which a chunk is considered noise
const (
	minChunkHTML = 50
	minChunkText = 20
)

// TextAggregator collects chunks in step order, dropping trivial and
// duplicate ones. Duplication is keyed on both the text and the HTML so a
// re-rendered page with identical prose but different markup still counts
// once.
type TextAggregator struct {
	chunks []Chunk
	seen   map[[2]string]bool
}

func NewTextAggregator() *TextAggregator {
	return &TextAggregator{seen: map[[2]string]bool{}}
}

// Add appends a chunk when it is non-trivial and new. Returns whether it was
// kept.
func (a *TextAggregator) Add(c Chunk) bool {
	if len(c.HTML) <= minChunkHTML || len(strings.TrimSpace(c.Text)) <= minChunkText {
		return false
	}

	key := [2]string{c.Text, c.HTML}
	if a.seen[key] {
		return false
	}
	a.seen[key] = true
	a.chunks = append(a.chunks, c)
	return true
}

func (a *TextAggregator) Len() int { return len(a.chunks) }

// HTML joins the chunk markup in insertion order.
func (a *TextAggregator) HTML() string {
	var b strings.Builder
	for _, c := range a.chunks {
		b.WriteString(c.HTML)
		b.WriteString("\n")
	}
	return b.String()
}

// Text joins the plain text of all chunks separated by a blank line.
func (a *TextAggregator) Text() string {
	parts := make([]string, 0, len(a.chunks))
	for _, c := range a.chunks {
		parts = append(parts, strings.TrimSpace(c.Text))
	}
	return strings.Join(parts, "\n\n")
}

// Persist writes chapter.html and chapter.txt atomically so a crash between
// steps never leaves a torn file.
func (a *TextAggregator) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := util.WriteFileAtomic(filepath.Join(dir, "chapter.html"), []byte(a.HTML()), 0644); err != nil {
		return err
	}
	return util.WriteFileAtomic(filepath.Join(dir, "chapter.txt"), []byte(a.Text()), 0644)
}
