package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const pageURL = "https://page.kakao.com/content/1/viewer/2"

func TestHarvestHTML_ImgAndSrcset(t *testing.T) {
	html := `<html><body>
		<img src="https://cdn.example.com/p1.png">
		<img srcset="https://cdn.example.com/p2-small.png 480w, https://cdn.example.com/p2-big.png 1080w">
		<img data-src="/lazy/p3.png">
	</body></html>`

	urls := HarvestHTML(html, pageURL)
	assert.Equal(t, []string{
		"https://cdn.example.com/p1.png",
		"https://cdn.example.com/p2-big.png",
		"https://page.kakao.com/lazy/p3.png",
	}, urls)
}

func TestHarvestHTML_BackgroundImage(t *testing.T) {
	html := `<div style="background-image: url('https://cdn.example.com/bg.jpg'); width: 100px"></div>`

	urls := HarvestHTML(html, pageURL)
	assert.Equal(t, []string{"https://cdn.example.com/bg.jpg"}, urls)
}

func TestHarvestHTML_SkipsChrome(t *testing.T) {
	html := `<html><body>
		<img src="https://cdn.example.com/site-logo.png">
		<img src="https://cdn.example.com/profile/me.jpg">
		<img src="data:image/gif;base64,R0lGOD">
		<img src="https://cdn.example.com/page.png">
	</body></html>`

	urls := HarvestHTML(html, pageURL)
	assert.Equal(t, []string{"https://cdn.example.com/page.png"}, urls)
}

func TestWidestSrcsetEntry(t *testing.T) {
	assert.Equal(t, "b.png", widestSrcsetEntry("a.png 480w, b.png 1080w, c.png 720w"))
	// no descriptors: last entry wins
	assert.Equal(t, "c.png", widestSrcsetEntry("a.png, b.png, c.png"))
	assert.Equal(t, "", widestSrcsetEntry(""))
}

func TestMergeURLs(t *testing.T) {
	got := MergeURLs([]string{"a", "b"}, []string{"b", "c", "a", "d"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestTextAggregator(t *testing.T) {
	agg := NewTextAggregator()

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'x'
	}
	chunk := Chunk{HTML: "<p>" + string(long) + "</p>", Text: string(long)}

	assert.True(t, agg.Add(chunk))
	assert.False(t, agg.Add(chunk), "duplicate is dropped")
	assert.False(t, agg.Add(Chunk{HTML: "<p>x</p>", Text: "x"}), "trivial is dropped")
	assert.Equal(t, 1, agg.Len())

	chunk2 := Chunk{HTML: chunk.HTML + "<hr>", Text: chunk.Text + " more"}
	assert.True(t, agg.Add(chunk2))

	text := agg.Text()
	assert.Contains(t, text, "\n\n")
}

func TestTextAggregator_Persist(t *testing.T) {
	agg := NewTextAggregator()

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'y'
	}
	agg.Add(Chunk{HTML: "<p>" + string(long) + "</p>", Text: string(long)})

	dir := filepath.Join(t.TempDir(), "ch1")
	assert.NoError(t, agg.Persist(dir))

	html, err := os.ReadFile(filepath.Join(dir, "chapter.html"))
	assert.NoError(t, err)
	assert.Contains(t, string(html), "<p>")

	txt, err := os.ReadFile(filepath.Join(dir, "chapter.txt"))
	assert.NoError(t, err)
	assert.Equal(t, string(long), string(txt))
}
