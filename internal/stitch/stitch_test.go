package stitch

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	assert.NoError(t, err)
	assert.NoError(t, png.Encode(f, img))
	assert.NoError(t, f.Close())
	return path
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	assert.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestGroup_ByCount(t *testing.T) {
	j := Job{Mode: ByCount, GroupSize: 2}
	groups, err := j.group([]string{"a", "b", "c", "d", "e"})
	assert.NoError(t, err)
	assert.Len(t, groups, 3)
	assert.Equal(t, []string{"a", "b"}, groups[0])
	assert.Equal(t, []string{"e"}, groups[2])
}

func TestGroup_ByHeight(t *testing.T) {
	dir := t.TempDir()
	p1 := writePNG(t, dir, "001.png", 10, 60)
	p2 := writePNG(t, dir, "002.png", 10, 60)
	p3 := writePNG(t, dir, "003.png", 10, 60)

	j := Job{Mode: ByHeight, HeightLimit: 130}
	groups, err := j.group([]string{p1, p2, p3})
	assert.NoError(t, err)
	assert.Len(t, groups, 2)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)

	// a single page taller than the limit still forms its own group
	tall := writePNG(t, dir, "004.png", 10, 500)
	groups, err = j.group([]string{tall, p1})
	assert.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestGroup_Invalid(t *testing.T) {
	_, err := Job{Mode: ByCount}.group([]string{"a"})
	assert.Error(t, err)
	_, err = Job{Mode: ByHeight}.group([]string{"a"})
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "177.png", OutputName(1, 1, "177"))
	assert.Equal(t, "01.png", OutputName(1, 5, "177"))
	assert.Equal(t, "05.png", OutputName(5, 10, "177"))
	assert.Equal(t, "007.png", OutputName(7, 120, "177"))
}

func TestRun_ByCount(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writePNG(t, dir, "001.png", 20, 30),
		writePNG(t, dir, "002.png", 20, 40),
		writePNG(t, dir, "003.png", 20, 50),
	}

	dest := filepath.Join(dir, "out")
	j := Job{Mode: ByCount, GroupSize: 2, PNGLevel: 1}

	outputs, err := j.Run(context.Background(), files, dest, "12", 2)
	assert.NoError(t, err)
	assert.Len(t, outputs, 2)

	w, h := decodeSize(t, filepath.Join(dest, "01.png"))
	assert.Equal(t, 20, w)
	assert.Equal(t, 70, h)

	w, h = decodeSize(t, filepath.Join(dest, "02.png"))
	assert.Equal(t, 20, w)
	assert.Equal(t, 50, h)

	// sources stay without DeleteSources
	for _, f := range files {
		_, err := os.Stat(f)
		assert.NoError(t, err)
	}
}

func TestRun_SingleGroupUsesFolderName(t *testing.T) {
	dir := t.TempDir()
	files := []string{writePNG(t, dir, "001.png", 10, 10)}

	dest := filepath.Join(dir, "out")
	j := Job{Mode: ByCount, GroupSize: 5}

	outputs, err := j.Run(context.Background(), files, dest, "42", 1)
	assert.NoError(t, err)
	assert.Len(t, outputs, 1)
	assert.Equal(t, filepath.Join(dest, "42.png"), outputs[0])
}

func TestRun_ScalesToWidestInput(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writePNG(t, dir, "001.png", 10, 10),
		writePNG(t, dir, "002.png", 20, 10),
	}

	dest := filepath.Join(dir, "out")
	j := Job{Mode: ByCount, GroupSize: 2}

	_, err := j.Run(context.Background(), files, dest, "1", 1)
	assert.NoError(t, err)

	w, h := decodeSize(t, filepath.Join(dest, "1.png"))
	assert.Equal(t, 20, w)
	// the 10x10 page is scaled to 20x20 before stacking
	assert.Equal(t, 30, h)
}

func TestRun_DeleteSources(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writePNG(t, dir, "001.png", 10, 10),
		writePNG(t, dir, "002.png", 10, 10),
	}

	j := Job{Mode: ByCount, GroupSize: 2, DeleteSources: true}
	_, err := j.Run(context.Background(), files, filepath.Join(dir, "out"), "1", 1)
	assert.NoError(t, err)

	for _, f := range files {
		_, err := os.Stat(f)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestCompressionLevel(t *testing.T) {
	assert.Equal(t, png.NoCompression, Job{PNGLevel: 0}.compressionLevel())
	assert.Equal(t, png.BestSpeed, Job{PNGLevel: 3}.compressionLevel())
	assert.Equal(t, png.DefaultCompression, Job{PNGLevel: 6}.compressionLevel())
	assert.Equal(t, png.BestCompression, Job{PNGLevel: 9}.compressionLevel())
	assert.Equal(t, png.BestCompression, Job{PNGLevel: 2, Optimize: true}.compressionLevel())
}
