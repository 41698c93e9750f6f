package job

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ostrab/kpdl/internal/cache"
	"github.com/ostrab/kpdl/internal/chapters"
	"github.com/ostrab/kpdl/internal/downloader"
	"github.com/ostrab/kpdl/internal/extract"
	"github.com/ostrab/kpdl/internal/session"
	"github.com/ostrab/kpdl/internal/stitch"
	"github.com/ostrab/kpdl/internal/ui"
	"github.com/ostrab/kpdl/internal/util"
)

// Mode selects how the chapter spec is interpreted.
type Mode int

const (
	ByOrdinal Mode = iota
	ByViewerID
	ByIndex
	ByVolumeOrdinal
)

// Config is the full job description.
type Config struct {
	TitleID    string
	Mode       Mode
	Spec       string
	VolumeSpec string
	OutDir     string

	Novel    bool
	MinWidth int
	ScrollMs int

	AutoConfirmPurchase  bool
	AutoConfirmUseRental bool

	Workers     int
	AutoWorkers bool

	Stitch        *stitch.Job
	StitchSameDir bool
	StitchOutDir  string

	DeleteURLCache bool
	DryRun         bool

	UserAgent string
	Debug     bool
}

// UI is the callback surface the job drives. The job never exits the
// process on its own: terminal failures arrive as Error followed by
// Finished, after which the job emits nothing more.
//
// The interface deliberately covers session.LoginPrompter and
// session.AccessPrompter so one terminal implementation serves all three.
type UI interface {
	Log(line string)
	NeedLogin(ctx context.Context) error
	ConfirmUseRental(rental, own, balance int, chapterLabel string) bool
	ConfirmPurchase(price, balance int) bool
	Error(message string)
	Finished()
}

// SessionFileName inside the output directory.
const SessionFileName = "kakao_auth.json"

// Job runs one download session end to end. It owns the browser for its
// whole lifetime; browser interaction is strictly sequential, only the
// image downloads and stitching fan out.
type Job struct {
	cfg Config
	ui  UI
	log *ui.Logger

	cancel context.CancelFunc
}

func New(cfg Config, callbacks UI) *Job {
	return &Job{
		cfg: cfg,
		ui:  callbacks,
		log: ui.NewLoggerTo(cfg.Debug, uiWriter{callbacks}),
	}
}

// uiWriter forwards logger output line by line into the UI scrollback.
type uiWriter struct{ ui UI }

func (w uiWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.ui.Log(line)
	}
	return len(p), nil
}

// Stop requests cooperative cancellation. Safe to call from any goroutine
// and before Run.
func (j *Job) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
}

// RootDir is the per-title output folder.
func (j *Job) RootDir() string {
	prefix := "kakao_"
	if j.cfg.Novel {
		prefix = "kakao_novel_"
	}
	return filepath.Join(j.cfg.OutDir, prefix+j.cfg.TitleID)
}

// Run executes the job. All outcomes are reported through the UI
// callbacks; Run itself never returns an error.
func (j *Job) Run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	j.cancel = cancel
	defer cancel()

	err := j.run(ctx)

	switch {
	case err == nil:
		j.log.Line(ui.KindDone, "Готово.")
		j.ui.Finished()

	case errors.Is(err, ErrCanceled):
		j.log.Line(ui.KindStop, "Остановлено пользователем.")
		j.ui.Finished()

	case errors.Is(err, session.ErrBrowserClosed):
		j.ui.Error("Браузер был закрыт")
		j.ui.Finished()

	case errors.Is(err, session.ErrLoginAborted):
		j.ui.Error("Вход не был завершён")
		j.ui.Finished()

	default:
		j.ui.Error(err.Error())
		j.ui.Finished()
	}
}

func (j *Job) run(ctx context.Context) error {
	if err := os.MkdirAll(j.RootDir(), 0755); err != nil {
		return err
	}
	util.CleanupUnfinishedTempFolders(j.RootDir())

	browser, err := session.Launch(ctx, session.LaunchOptions{
		UserAgent: util.PickUserAgent(j.cfg.UserAgent),
		Debug:     j.log,
	})
	if err != nil {
		return classify(err)
	}
	defer browser.Close()

	statePath := filepath.Join(j.cfg.OutDir, SessionFileName)
	state, err := session.Acquire(ctx, browser, statePath, j.ui, j.log)
	if err != nil {
		return classify(err)
	}

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:      60 * time.Second,
		UserAgent:    util.PickUserAgent(j.cfg.UserAgent),
		CookieHeader: state.CookieHeader(),
		DebugLogger:  j.log,
	})
	if err != nil {
		return err
	}

	targets, err := j.resolveTargets(ctx, browser)
	if err != nil {
		return classify(err)
	}
	if len(targets) == 0 {
		return fmt.Errorf("не найдено ни одной главы по запросу %q", j.cfg.Spec)
	}

	j.log.Line(ui.KindInfo, "К загрузке: %d глав(ы)", len(targets))

	workers := downloader.Workers(j.cfg.AutoWorkers, j.cfg.Workers)
	stats := &ui.Stats{}
	progress := ui.NewProgressManager()
	defer progress.Close()

	for _, ref := range targets {
		if ctx.Err() != nil {
			return ErrCanceled
		}

		err := j.processChapter(ctx, browser, client, ref, workers, stats, progress)
		if err == nil {
			continue
		}

		err = classify(err)
		if fatal(err) {
			return err
		}

		j.log.Line(ui.KindError, "Глава %s: %v", ref.DisplayLabel(), err)
	}

	j.log.Line(ui.KindInfo, "Глав: %d, изображений: %d, данных: %s, пропущено: %d",
		stats.TotalChapters.Load(), stats.TotalImages.Load(),
		util.Human(stats.TotalBytes.Load()), stats.TotalSkipped.Load())

	util.RemoveIfEmpty(j.RootDir())
	return nil
}

// resolveTargets turns the user spec into an ordered chapter list.
func (j *Job) resolveTargets(ctx context.Context, browser *session.Browser) ([]chapters.Ref, error) {
	if j.cfg.Mode == ByViewerID {
		ids := chapters.ParseViewerIDs(j.cfg.Spec)
		refs := make([]chapters.Ref, 0, len(ids))
		for _, id := range ids {
			refs = append(refs, chapters.Ref{ViewerID: id})
		}
		return refs, nil
	}

	nums, err := chapters.ParseSpec(j.cfg.Spec)
	if err != nil {
		return nil, err
	}

	m := cache.LoadEpisodeMap(j.cfg.OutDir)
	if m != nil && j.cfg.Mode == ByOrdinal && m.HasOrdinals(nums) {
		j.log.Line(ui.KindCache, "Карта глав взята из кэша (%d записей)", m.Len())
	} else {
		m, err = j.buildMap(ctx, browser, nums)
		if err != nil {
			return nil, err
		}
		if err := cache.SaveEpisodeMap(j.cfg.OutDir, m); err != nil {
			j.log.Line(ui.KindWarn, "Не удалось сохранить карту глав: %v", err)
		}
	}

	switch j.cfg.Mode {
	case ByOrdinal:
		found, missing := chapters.ResolveOrdinals(m, nums)
		for _, o := range missing {
			j.log.Line(ui.KindSkip, "Глава %d화 не найдена", o)
		}
		return found, nil

	case ByIndex:
		var refs []chapters.Ref
		for _, idx := range nums {
			r, err := m.ByIndex(idx)
			if err != nil {
				return nil, err
			}
			refs = append(refs, r)
		}
		return refs, nil

	case ByVolumeOrdinal:
		vols, err := chapters.ParseSpec(j.cfg.VolumeSpec)
		if err != nil {
			return nil, fmt.Errorf("volume spec: %w", err)
		}
		found, missing := chapters.ResolveVolumeOrdinals(m, vols, nums)
		for _, s := range missing {
			j.log.Line(ui.KindSkip, "Глава %s не найдена", s)
		}
		return found, nil

	default:
		return nil, fmt.Errorf("unknown mode %d", j.cfg.Mode)
	}
}

func (j *Job) buildMap(ctx context.Context, browser *session.Browser, ordinals []int) (*chapters.Map, error) {
	page := &extract.ContentPage{Browser: browser, TitleID: j.cfg.TitleID}
	if err := page.Open(ctx); err != nil {
		return nil, err
	}

	m := chapters.NewMap()

	// Index lookups need the full list, so the reveal loop runs until the
	// page stops growing; ordinal lookups stop as soon as every requested
	// chapter is visible.
	opts := chapters.RevealOptions{StopOnMatch: j.cfg.Mode != ByIndex}
	targets := ordinals
	if j.cfg.Mode == ByIndex {
		targets = nil
	}

	if err := chapters.BuildIncrementally(ctx, page, m, j.cfg.TitleID, targets, opts); err != nil {
		return nil, err
	}

	j.log.Line(ui.KindInfo, "Карта глав: %d записей", m.Len())
	return m, nil
}

// processChapter walks one chapter through access arbitration, harvest,
// download and stitch. Per-chapter failures are returned for SKIP-style
// reporting; only classified fatal errors unwind the job.
func (j *Job) processChapter(
	ctx context.Context,
	browser *session.Browser,
	client *http.Client,
	ref chapters.Ref,
	workers int,
	stats *ui.Stats,
	progress *ui.ProgressManager,
) error {
	folderName := ref.FolderName()
	chapterDir := filepath.Join(j.RootDir(), folderName)

	// Existence-based skip: a folder with at least one numbered page is
	// treated as complete.
	if util.HasPages(chapterDir) {
		j.log.Line(ui.KindSkip, "Глава %s уже скачана (%s)", ref.DisplayLabel(), folderName)
		stats.TotalSkipped.Add(1)
		return nil
	}

	if j.cfg.DryRun {
		j.log.Line(ui.KindInfo, "Глава %s -> %s", ref.DisplayLabel(), folderName)
		return nil
	}

	// All writes go into a temp folder that is renamed into place only
	// after the chapter completes, so an interrupted run never leaves a
	// folder the skip above would mistake for a finished chapter. Stale
	// temp folders are swept at job start.
	workDir := chapterDir + "_tmp"

	if j.cfg.DeleteURLCache {
		cache.DeleteURLList(j.cfg.OutDir, folderName)
	}

	urls := cache.LoadURLList(j.cfg.OutDir, folderName)
	if urls != nil {
		j.log.Line(ui.KindCache, "Список URL для %s взят из кэша (%d шт.)", ref.DisplayLabel(), len(urls))
	}

	viewerURL := session.ViewerURL(j.cfg.TitleID, ref.ViewerID)

	// Even with a cached URL list the viewer must be opened: access has to
	// be arbitrated and the CDN checks the referer chain.
	result, err := session.EnsureAccess(ctx, browser,
		j.cfg.TitleID, ref.ViewerID, ref.DisplayLabel(),
		j.ui, j.cfg.AutoConfirmUseRental, j.cfg.AutoConfirmPurchase, j.log)
	if err != nil {
		return err
	}
	if result == session.ResultSkipped {
		j.log.Line(ui.KindSkip, "Глава %s пропущена (нет доступа)", ref.DisplayLabel())
		stats.TotalSkipped.Add(1)
		return nil
	}

	if urls == nil {
		urls, err = j.harvest(ctx, browser, viewerURL, workDir)
		if err != nil {
			return err
		}
		if len(urls) > 0 {
			if err := cache.SaveURLList(j.cfg.OutDir, folderName, urls); err != nil {
				j.log.Line(ui.KindWarn, "Не удалось сохранить список URL: %v", err)
			}
		}
	}

	if len(urls) == 0 && !j.cfg.Novel {
		return fmt.Errorf("изображения не найдены")
	}

	if len(urls) > 0 {
		j.log.Line(ui.KindLoad, "%s: %d изображений", ref.DisplayLabel(), len(urls))

		dl := downloader.New(client, j.cfg.Debug, viewerURL, session.SiteRoot, j.cfg.MinWidth)
		ph := progress.Register(folderName)

		startIndex := util.NextIndex(workDir)
		files, bytes, failed, err := dl.DownloadImages(ctx, urls, workDir, startIndex, workers, ph)
		if err != nil {
			return err
		}
		if failed > 0 {
			j.log.Line(ui.KindWarn, "Глава %s: %d изображений не скачано", ref.DisplayLabel(), failed)
		}

		stats.TotalImages.Add(int64(len(files)))
		stats.TotalBytes.Add(bytes)

		if j.cfg.Stitch != nil && len(files) > 0 {
			if err := j.stitchChapter(ctx, files, folderName, workDir, workers); err != nil {
				return err
			}
		}
	}

	if err := promoteChapterDir(workDir, chapterDir); err != nil {
		return err
	}

	stats.TotalChapters.Add(1)
	j.log.Line(ui.KindOK, "Глава %s готова (%d изображений)", ref.DisplayLabel(), len(urls))
	return nil
}

// harvest collects page-image URLs, using the text-viewer pipeline when the
// job is a novel job.
func (j *Job) harvest(ctx context.Context, browser *session.Browser, viewerURL, chapterDir string) ([]string, error) {
	if !j.cfg.Novel {
		m := &extract.Manhwa{
			Browser:      browser,
			Log:          j.log,
			ScrollBudget: time.Duration(j.cfg.ScrollMs) * time.Millisecond,
		}
		return m.Harvest(ctx, viewerURL)
	}

	n := &extract.Novel{
		Browser:  browser,
		Log:      j.log,
		MinWidth: j.cfg.MinWidth,
		OutDir:   chapterDir,
	}

	if isText, err := n.IsTextViewer(ctx); err != nil {
		return nil, err
	} else if !isText {
		j.log.Line(ui.KindWarn, "Viewer is not the text build, falling back to image harvest")
		m := &extract.Manhwa{
			Browser:      browser,
			Log:          j.log,
			ScrollBudget: time.Duration(j.cfg.ScrollMs) * time.Millisecond,
		}
		return m.Harvest(ctx, viewerURL)
	}

	urls, agg, err := n.Extract(ctx)
	if err != nil {
		return nil, err
	}
	j.log.Line(ui.KindInfo, "Текст: %d фрагментов, иллюстраций: %d", agg.Len(), len(urls))
	return urls, nil
}

// stitchChapter stacks the chapter's pages. Stitches either stay next to
// the pages (sameDir) or collect in the per-title folder under the stitch
// output root; the single-group output carries the chapter folder name, so
// chapters sharing that folder stay apart.
func (j *Job) stitchChapter(ctx context.Context, files []string, folderName, chapterDir string, workers int) error {
	destDir := chapterDir
	if !j.cfg.StitchSameDir {
		base := j.cfg.StitchOutDir
		if base == "" {
			base = j.cfg.OutDir
		}
		destDir = filepath.Join(base, filepath.Base(j.RootDir()))
	}

	outputs, err := j.cfg.Stitch.Run(ctx, files, destDir, folderName, workers)
	if err != nil {
		return fmt.Errorf("stitch: %w", err)
	}

	j.log.Line(ui.KindOK, "Склейка %s: %d файлов", folderName, len(outputs))
	return nil
}

// promoteChapterDir renames the finished temp folder into place. A leftover
// folder without pages from an older run is replaced.
func promoteChapterDir(work, final string) error {
	if _, err := os.Stat(work); os.IsNotExist(err) {
		// nothing was produced (e.g. a text-only chapter with no pages)
		return nil
	}
	if err := os.Rename(work, final); err == nil {
		return nil
	}
	if err := os.RemoveAll(final); err != nil {
		return err
	}
	return os.Rename(work, final)
}
