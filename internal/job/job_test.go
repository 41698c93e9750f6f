package job

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ostrab/kpdl/internal/stitch"
)

type nopUI struct{}

func (nopUI) Log(string) {}

func (nopUI) NeedLogin(context.Context) error { return nil }

func (nopUI) ConfirmUseRental(int, int, int, string) bool { return false }

func (nopUI) ConfirmPurchase(int, int) bool { return false }

func (nopUI) Error(string) {}

func (nopUI) Finished() {}

func writePage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	assert.NoError(t, err)
	assert.NoError(t, png.Encode(f, img))
	assert.NoError(t, f.Close())
	return path
}

func chapterPages(t *testing.T, dir string) []string {
	t.Helper()
	assert.NoError(t, os.MkdirAll(dir, 0755))
	return []string{
		writePage(t, dir, "001.png", 20, 30),
		writePage(t, dir, "002.png", 20, 40),
	}
}

func TestStitchChapter_DestinationIsTitleFolder(t *testing.T) {
	out := t.TempDir()
	stitchOut := t.TempDir()

	j := New(Config{
		TitleID:      "50000001",
		OutDir:       out,
		Stitch:       &stitch.Job{Mode: stitch.ByCount, GroupSize: 12},
		StitchOutDir: stitchOut,
	}, nopUI{})

	chapterDir := filepath.Join(j.RootDir(), "5")
	files := chapterPages(t, chapterDir)

	assert.NoError(t, j.stitchChapter(context.Background(), files, "5", chapterDir, 1))

	// stitches collect per title, named after the chapter folder
	_, err := os.Stat(filepath.Join(stitchOut, "kakao_50000001", "5.png"))
	assert.NoError(t, err)
}

func TestStitchChapter_DefaultDestinationIsTitleRoot(t *testing.T) {
	out := t.TempDir()

	j := New(Config{
		TitleID: "50000001",
		OutDir:  out,
		Stitch:  &stitch.Job{Mode: stitch.ByCount, GroupSize: 12},
	}, nopUI{})

	chapterDir := filepath.Join(j.RootDir(), "7")
	files := chapterPages(t, chapterDir)

	assert.NoError(t, j.stitchChapter(context.Background(), files, "7", chapterDir, 1))

	_, err := os.Stat(filepath.Join(j.RootDir(), "7.png"))
	assert.NoError(t, err)
}

func TestStitchChapter_SameDirKeepsPagesAndStitchTogether(t *testing.T) {
	out := t.TempDir()

	j := New(Config{
		TitleID:       "50000001",
		OutDir:        out,
		Stitch:        &stitch.Job{Mode: stitch.ByCount, GroupSize: 12},
		StitchSameDir: true,
	}, nopUI{})

	chapterDir := filepath.Join(j.RootDir(), "9")
	files := chapterPages(t, chapterDir)

	assert.NoError(t, j.stitchChapter(context.Background(), files, "9", chapterDir, 1))

	_, err := os.Stat(filepath.Join(chapterDir, "9.png"))
	assert.NoError(t, err)
}

func TestPromoteChapterDir(t *testing.T) {
	root := t.TempDir()
	work := filepath.Join(root, "5_tmp")
	final := filepath.Join(root, "5")

	assert.NoError(t, os.MkdirAll(work, 0755))
	writePage(t, work, "001.png", 4, 4)

	assert.NoError(t, promoteChapterDir(work, final))

	_, err := os.Stat(filepath.Join(final, "001.png"))
	assert.NoError(t, err)
	_, err = os.Stat(work)
	assert.True(t, os.IsNotExist(err))
}

func TestPromoteChapterDir_ReplacesPagelessLeftover(t *testing.T) {
	root := t.TempDir()
	work := filepath.Join(root, "5_tmp")
	final := filepath.Join(root, "5")

	assert.NoError(t, os.MkdirAll(work, 0755))
	writePage(t, work, "001.png", 4, 4)

	assert.NoError(t, os.MkdirAll(final, 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(final, "chapter.txt"), []byte("stale"), 0644))

	assert.NoError(t, promoteChapterDir(work, final))

	_, err := os.Stat(filepath.Join(final, "001.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(final, "chapter.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestPromoteChapterDir_NothingProduced(t *testing.T) {
	root := t.TempDir()
	assert.NoError(t, promoteChapterDir(
		filepath.Join(root, "5_tmp"), filepath.Join(root, "5")))

	_, err := os.Stat(filepath.Join(root, "5"))
	assert.True(t, os.IsNotExist(err))
}
