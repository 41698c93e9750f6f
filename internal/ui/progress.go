package ui

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/ostrab/kpdl/internal/util"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ProgressManager renders one bar per chapter being downloaded.
type ProgressManager struct {
	p *mpb.Progress
}

func NewProgressManager() *ProgressManager {
	return &ProgressManager{p: mpb.New(
		mpb.WithWidth(48),
		mpb.WithOutput(os.Stdout),
		mpb.WithRefreshRate(150*time.Millisecond),
	)}
}

func (pm *ProgressManager) Close() {
	pm.p.Wait()
}

// Register adds a bar labeled with the chapter folder name. Decorators show
// pages done, bytes fetched and the running time; after MarkDone the elapsed
// value freezes.
func (pm *ProgressManager) Register(chapter string) *ProgressHandle {
	h := &ProgressHandle{start: time.Now()}

	h.bar = pm.p.New(
		0,
		mpb.BarStyle().Lbound("[").Rbound("]"),

		mpb.PrependDecorators(
			decor.Name(chapter+" "),
		),

		mpb.AppendDecorators(
			decor.CountersNoUnit("%d/%d стр.", decor.WCSyncWidth),
			decor.Any(func(decor.Statistics) string {
				return " | " + util.Human(h.bytes.Load())
			}),
			decor.Any(func(decor.Statistics) string {
				sec := h.elapsed.Load()
				if !h.final.Load() {
					sec = int64(time.Since(h.start).Seconds())
				}
				return fmt.Sprintf(" | %dс", sec)
			}),
		),
	)
	return h
}

// ProgressHandle is the per-chapter bar the downloader feeds.
type ProgressHandle struct {
	bar   *mpb.Bar
	start time.Time

	total atomic.Int64
	bytes atomic.Int64

	elapsed atomic.Int64
	final   atomic.Bool
}

func (h *ProgressHandle) SetTotal(total int) {
	if h.final.Load() {
		return
	}

	h.total.Store(int64(total))
	h.bar.SetTotal(int64(total), false)
}

func (h *ProgressHandle) Update(done, total int, bytes int64) {
	if h.final.Load() {
		return
	}

	if total > 0 {
		h.total.Store(int64(total))
		h.bar.SetTotal(int64(total), false)
	}

	h.bytes.Store(bytes)
	h.bar.SetCurrent(int64(done))
}

func (h *ProgressHandle) MarkDone() {
	if h.final.Swap(true) {
		return
	}

	h.elapsed.Store(int64(time.Since(h.start).Seconds()))
	h.bar.SetCurrent(h.total.Load())
	h.bar.SetTotal(h.total.Load(), true)
}
