package downloader

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	// Decoders for the width filter.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/ostrab/kpdl/internal/ui"
	"github.com/ostrab/kpdl/internal/util"
)

// Workers resolves the download pool size: CPU count clamped to [2,32] in
// auto mode, the user value clamped to [1,32] otherwise.
func Workers(auto bool, user int) int {
	if auto {
		n := runtime.NumCPU()
		if n < 2 {
			n = 2
		}
		if n > 32 {
			n = 32
		}
		return n
	}

	if user < 1 {
		user = 1
	}
	if user > 32 {
		user = 32
	}
	return user
}

type Downloader struct {
	client   *http.Client
	debug    bool
	referer  string
	origin   string
	minWidth int
}

func New(c *http.Client, debug bool, referer, origin string, minWidth int) *Downloader {
	return &Downloader{
		client:   c,
		debug:    debug,
		referer:  referer,
		origin:   origin,
		minWidth: minWidth,
	}
}

type chapterState struct {
	mu          sync.Mutex
	doneImages  int
	totalImages int
	doneBytes   int64
	failed      int
}

// DownloadImages fetches urls into folder with stable numbering: the file
// for urls[i] is named startIndex+i regardless of which worker finishes
// first. Failed images count as failures but never shift the numbering of
// the rest. The returned files keep the order of urls, not worker
// completion order, so downstream stitching sees pages in reading order.
func (d *Downloader) DownloadImages(
	ctx context.Context,
	urls []string,
	folder string,
	startIndex int,
	maxParallel int,
	ph *ui.ProgressHandle,
) (files []string, bytes int64, failed int, err error) {

	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, 0, 0, err
	}

	total := len(urls)
	if maxParallel < 1 {
		maxParallel = 1
	}
	if maxParallel > total && total > 0 {
		maxParallel = total
	}

	cs := &chapterState{totalImages: total}
	if ph != nil {
		ph.Update(0, total, 0)
	}

	// Indexed by url position; compacted after the pool drains.
	results := make([]string, len(urls))

	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			if ctx.Err() != nil {
				return
			}

			u := urls[i]
			path := filepath.Join(folder, util.PageName(startIndex+i, util.ExtFromURL(u)))

			var last int64
			progress := func(done int64) {
				delta := done - last
				if delta <= 0 {
					return
				}
				last = done
				cs.mu.Lock()
				cs.doneBytes += delta
				if ph != nil {
					ph.Update(cs.doneImages, cs.totalImages, cs.doneBytes)
				}
				cs.mu.Unlock()
			}

			err := d.downloadWithRetry(ctx, u, path, progress)
			if err == nil && d.minWidth > 0 {
				err = d.checkWidth(path)
			}

			cs.mu.Lock()
			cs.doneImages++
			if err != nil {
				cs.failed++
			}
			if ph != nil {
				ph.Update(cs.doneImages, cs.totalImages, cs.doneBytes)
			}
			cs.mu.Unlock()

			if err != nil {
				continue
			}

			results[i] = path
		}
	}

	wg.Add(maxParallel)
	for w := 0; w < maxParallel; w++ {
		go worker()
	}

	for i := range urls {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			if ph != nil {
				ph.MarkDone()
			}
			return compact(results), cs.doneBytes, cs.failed, ctx.Err()
		case jobs <- i:
		}
	}

	close(jobs)
	wg.Wait()
	if ph != nil {
		ph.MarkDone()
	}

	return compact(results), cs.doneBytes, cs.failed, nil
}

// compact drops the holes failed downloads leave in the indexed result
// slice, preserving page order.
func compact(results []string) []string {
	files := make([]string, 0, len(results))
	for _, p := range results {
		if p != "" {
			files = append(files, p)
		}
	}
	return files
}

// checkWidth deletes undersized files after download and counts them as
// failures.
func (d *Downloader) checkWidth(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	cfg, _, err := image.DecodeConfig(f)
	_ = f.Close()
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("undecodable image: %w", err)
	}
	if cfg.Width < d.minWidth {
		_ = os.Remove(path)
		return fmt.Errorf("image width %d below threshold %d", cfg.Width, d.minWidth)
	}
	return nil
}

// retryable statuses: rate limiting and server-side failures. Everything
// else fails fast.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func (d *Downloader) downloadWithRetry(
	ctx context.Context,
	url string,
	output string,
	progress func(done int64),
) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		var retry bool
		retry, err = d.download(ctx, url, output, progress)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
		}
	}

	return err
}

func (d *Downloader) download(
	ctx context.Context,
	u, output string,
	progress func(done int64),
) (retry bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return false, err
	}

	req.Header.Set("Referer", d.referer)
	req.Header.Set("Origin", d.origin)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	resp, err := d.client.Do(req)
	if err != nil {
		// Connection-level failures are worth one more try.
		return true, err
	}

	var bodyCloseErr error
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && bodyCloseErr == nil {
			bodyCloseErr = cerr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return retryableStatus(resp.StatusCode), fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(output)
	if err != nil {
		return false, err
	}

	var fileCloseErr error
	defer func() {
		if cerr := f.Close(); cerr != nil && fileCloseErr == nil {
			fileCloseErr = cerr
		}
	}()

	written, err := copyWithProgress(f, resp.Body, progress)
	if err != nil {
		// A truncated page must not survive: it would read as a
		// completed download on the next run.
		_ = f.Close()
		_ = os.Remove(output)
		return true, err
	}
	if written == 0 {
		_ = os.Remove(output)
		return true, fmt.Errorf("empty body")
	}

	if progress != nil && resp.ContentLength > 0 && written < resp.ContentLength {
		progress(resp.ContentLength)
	}

	if fileCloseErr != nil {
		_ = os.Remove(output)
		return false, fileCloseErr
	}

	return false, bodyCloseErr
}
