package stitch

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"strconv"
	"sync"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// GroupingMode selects how pages are packed into stitch groups.
type GroupingMode int

const (
	// ByCount packs fixed-size groups; the last group may be smaller.
	ByCount GroupingMode = iota
	// ByHeight packs greedily until the next page would exceed the limit.
	ByHeight
)

// Job describes one vertical-stitch run over a chapter's page images.
type Job struct {
	Mode        GroupingMode
	GroupSize   int
	HeightLimit int

	// TargetWidth forces the output width; zero keeps the widest input
	// width of each group.
	TargetWidth int

	PNGLevel      int // 0..9, ignored when Optimize
	Optimize      bool
	StripMetadata bool
	DeleteSources bool
}

// group splits the ordered page list according to the mode. Heights are only
// read for ByHeight.
func (j Job) group(files []string) ([][]string, error) {
	switch j.Mode {
	case ByCount:
		per := j.GroupSize
		if per <= 0 {
			return nil, fmt.Errorf("group size must be positive")
		}
		var out [][]string
		for i := 0; i < len(files); i += per {
			end := i + per
			if end > len(files) {
				end = len(files)
			}
			out = append(out, files[i:end])
		}
		return out, nil

	case ByHeight:
		limit := j.HeightLimit
		if limit <= 0 {
			return nil, fmt.Errorf("height limit must be positive")
		}

		var out [][]string
		var cur []string
		curH := 0
		for _, f := range files {
			h, err := imageHeight(f)
			if err != nil {
				return nil, err
			}
			if len(cur) > 0 && curH+h > limit {
				out = append(out, cur)
				cur = nil
				curH = 0
			}
			cur = append(cur, f)
			curH += h
		}
		if len(cur) > 0 {
			out = append(out, cur)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown grouping mode %d", j.Mode)
	}
}

func imageHeight(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg.Height, nil
}

// OutputName formats the stitch filename: zero-padded group index for
// multi-group chapters, the chapter folder name for a single group.
func OutputName(index, groupCount int, chapterFolderName string) string {
	if groupCount == 1 {
		return chapterFolderName + ".png"
	}

	width := len(strconv.Itoa(groupCount))
	if width < 2 {
		width = 2
	}
	s := strconv.Itoa(index)
	for len(s) < width {
		s = "0" + s
	}
	return s + ".png"
}

// Run stitches the ordered page files of one chapter into destDir. Chunks
// are processed on a bounded worker pool; sources are removed only after
// every chunk was written successfully.
func (j Job) Run(ctx context.Context, files []string, destDir, chapterFolderName string, workers int) ([]string, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no images to stitch")
	}

	groups, err := j.group(files)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, err
	}

	if workers < 1 {
		workers = 1
	}
	if workers > len(groups) {
		workers = len(groups)
	}

	outputs := make([]string, len(groups))
	errs := make([]error, len(groups))

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					errs[i] = ctx.Err()
					continue
				}
				out := destDir + string(os.PathSeparator) + OutputName(i+1, len(groups), chapterFolderName)
				errs[i] = j.stitchGroup(groups[i], out)
				outputs[i] = out
			}
		}()
	}

	for i := range groups {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	if j.DeleteSources {
		for _, f := range files {
			_ = os.Remove(f)
		}
	}

	return outputs, nil
}

// stitchGroup loads one group, normalizes widths and writes the stacked
// canvas.
func (j Job) stitchGroup(files []string, outPath string) error {
	imgs := make([]image.Image, 0, len(files))
	hasAlpha := false

	for _, f := range files {
		img, err := loadImage(f)
		if err != nil {
			return err
		}
		if imageHasAlpha(img) {
			hasAlpha = true
		}
		imgs = append(imgs, img)
	}

	baseWidth := j.TargetWidth
	if baseWidth <= 0 {
		for _, img := range imgs {
			if w := img.Bounds().Dx(); w > baseWidth {
				baseWidth = w
			}
		}
	}
	if baseWidth <= 0 {
		return fmt.Errorf("cannot determine stitch width")
	}

	totalHeight := 0
	scaled := make([]image.Image, len(imgs))
	for i, img := range imgs {
		scaled[i] = scaleToWidth(img, baseWidth)
		totalHeight += scaled[i].Bounds().Dy()
	}

	canvas := newCanvas(baseWidth, totalHeight, hasAlpha)

	y := 0
	for _, img := range scaled {
		h := img.Bounds().Dy()
		r := image.Rect(0, y, baseWidth, y+h)
		draw.Draw(canvas, r, img, img.Bounds().Min, draw.Src)
		y += h
	}

	return j.encode(canvas, outPath)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func imageHasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64:
		b := img.Bounds()
		// Sampling the corners and center is enough to catch real
		// transparency without a full scan.
		points := []image.Point{
			b.Min,
			{b.Max.X - 1, b.Min.Y},
			{b.Min.X, b.Max.Y - 1},
			{b.Max.X - 1, b.Max.Y - 1},
			{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2},
		}
		for _, p := range points {
			if _, _, _, a := img.At(p.X, p.Y).RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}

// newCanvas allocates the output image: transparent RGBA when any input has
// alpha, white-backed otherwise.
func newCanvas(w, h int, alpha bool) draw.Image {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	if !alpha {
		draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	}
	return canvas
}

// scaleToWidth resizes preserving aspect ratio with CatmullRom resampling.
func scaleToWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() == width {
		return img
	}

	height := int(float64(b.Dy()) * float64(width) / float64(b.Dx()))
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func (j Job) encode(img image.Image, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}

	enc := png.Encoder{CompressionLevel: j.compressionLevel()}
	if err := enc.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		return err
	}

	return f.Close()
}

// compressionLevel maps the 0..9 knob onto the encoder's levels; Optimize
// always takes best compression.
func (j Job) compressionLevel() png.CompressionLevel {
	if j.Optimize {
		return png.BestCompression
	}

	switch {
	case j.PNGLevel <= 0:
		return png.NoCompression
	case j.PNGLevel <= 3:
		return png.BestSpeed
	case j.PNGLevel <= 8:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}
