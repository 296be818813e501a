package jobs

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ayload-server/internal/domain"
	"ayload-server/internal/provider"
	"ayload-server/internal/repository"
	"ayload-server/internal/storage"
)

// Manager owns the job table and drives every download job through its
// lifecycle to a terminal state.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Create(ctx context.Context, url, format, quality string, options map[string]any) (string, error)
	Status(id string) (domain.Job, bool)
	FilePath(id string) (string, error)
}

type Config struct {
	DownloadsDir  string
	UploadOptions storage.UploadOptions
	Logger        *logrus.Logger
}

type manager struct {
	cfg      Config
	provider provider.Provider
	store    repository.JobStore
	history  repository.HistoryRepository
	storage  storage.Service

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	active map[string]*jobHandle
}

// jobHandle is kept per running fetch task so a future cancellation surface
// can reach it; nothing aborts a running job today.
type jobHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, p provider.Provider, store repository.JobStore, history repository.HistoryRepository, storageSvc storage.Service) Manager {
	if cfg.DownloadsDir == "" {
		cfg.DownloadsDir = "downloads"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:      cfg,
		provider: p,
		store:    store,
		history:  history,
		storage:  storageSvc,
		active:   make(map[string]*jobHandle),
	}
}

func (m *manager) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.DownloadsDir, 0o755); err != nil {
		return fmt.Errorf("create downloads dir: %w", err)
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.cfg.Logger.Infof("job manager started, downloads dir: %s", m.cfg.DownloadsDir)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("job manager stopped")
}

// Create validates the request, inserts a pending job and spawns its fetch
// task. It returns as soon as the record is in the table; it never waits on
// resolution or transfer.
func (m *manager) Create(ctx context.Context, url, format, quality string, options map[string]any) (string, error) {
	if strings.TrimSpace(url) == "" || strings.TrimSpace(format) == "" {
		return "", fmt.Errorf("%w: url and format are required", domain.ErrInvalidInput)
	}

	job := &domain.Job{
		ID:        uuid.NewString(),
		URL:       url,
		Format:    format,
		Quality:   quality,
		State:     domain.JobStatePending,
		CreatedAt: time.Now(),
	}
	if err := m.store.Insert(job); err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}

	m.spawnFetchTask(*job)
	return job.ID, nil
}

// Status is a pure read of the current job record.
func (m *manager) Status(id string) (domain.Job, bool) {
	return m.store.Get(id)
}

// FilePath returns the output path only when the job is completed and the
// artifact still exists on disk. Callers cannot distinguish "failed" from
// "in progress" here; Status is the diagnostic surface.
func (m *manager) FilePath(id string) (string, error) {
	job, ok := m.store.Get(id)
	if !ok || job.State != domain.JobStateCompleted || job.OutputPath == "" {
		return "", domain.ErrNotReady
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		return "", fmt.Errorf("%w: artifact missing: %v", domain.ErrNotFound, err)
	}
	return job.OutputPath, nil
}

func (m *manager) spawnFetchTask(job domain.Job) {
	taskCtx, cancel := context.WithCancel(m.ctx)
	handle := &jobHandle{cancel: cancel, done: make(chan struct{})}
	m.registerJob(job.ID, handle)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.unregisterJob(job.ID)
			close(handle.done)
		}()
		m.runFetchTask(taskCtx, job)
	}()
}

func (m *manager) registerJob(id string, handle *jobHandle) {
	m.mu.Lock()
	m.active[id] = handle
	m.mu.Unlock()
}

func (m *manager) unregisterJob(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// runFetchTask drives one job: pending -> resolving -> downloading ->
// completed, with failed reachable from any step. This goroutine is the only
// writer to its job's lifecycle fields.
func (m *manager) runFetchTask(ctx context.Context, job domain.Job) {
	logger := m.cfg.Logger.WithField("job_id", job.ID)

	m.store.Update(job.ID, func(j *domain.Job) {
		j.State = domain.JobStateResolving
	})

	media, err := m.provider.Resolve(ctx, job.URL)
	if err != nil {
		m.failJob(job.ID, fmt.Errorf("%w: %v", domain.ErrResolution, err))
		return
	}

	if !strings.EqualFold(job.Format, "mp4") {
		m.failJob(job.ID, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, job.Format))
		return
	}

	variant, ok := SelectVariant(media.Variants, job.Quality)
	if !ok {
		m.failJob(job.ID, fmt.Errorf("%w: no mp4 stream carrying both audio and video", domain.ErrResolution))
		return
	}

	stream, size, err := m.provider.OpenStream(ctx, media, variant)
	if err != nil {
		m.failJob(job.ID, fmt.Errorf("%w: open stream: %v", domain.ErrResolution, err))
		return
	}
	defer stream.Close()

	if size <= 0 {
		size = variant.ContentLength
	}

	outputPath := filepath.Join(m.cfg.DownloadsDir,
		fmt.Sprintf("%s_%s_%d.mp4", media.ID, strings.ToLower(job.Format), time.Now().UnixMilli()))

	m.store.Update(job.ID, func(j *domain.Job) {
		j.State = domain.JobStateDownloading
		j.TotalBytes = size
	})
	logger.Infof("downloading %s (%s) to %s", media.ID, variant.QualityLabel, outputPath)

	if err := m.copyStream(ctx, job.ID, stream, outputPath, size); err != nil {
		// A partial output file may remain on disk; nothing cleans it up.
		m.failJob(job.ID, fmt.Errorf("%w: %v", domain.ErrTransfer, err))
		return
	}

	m.store.Update(job.ID, func(j *domain.Job) {
		j.State = domain.JobStateCompleted
		j.OutputPath = outputPath
	})
	logger.Info("download completed")

	m.offloadArtifact(job.ID, outputPath, logger)
	m.recordOutcome(job.ID)
}

func (m *manager) copyStream(ctx context.Context, jobID string, src io.Reader, dst string, total int64) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	writer := &progressWriter{
		out:   out,
		total: total,
		report: func(percent int) {
			m.store.Update(jobID, func(j *domain.Job) {
				if percent > j.Progress {
					j.Progress = percent
				}
			})
		},
	}

	if _, err := io.Copy(writer, &contextReader{ctx: ctx, r: src}); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy stream: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("sync output: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func (m *manager) failJob(id string, failErr error) {
	msg := failErr.Error()
	m.store.Update(id, func(j *domain.Job) {
		j.State = domain.JobStateFailed
		j.ErrorDetail = msg
	})
	m.cfg.Logger.WithField("job_id", id).Error(msg)
	m.recordOutcome(id)
}

// recordOutcome archives a terminal job in the history repository. Failures
// here are logged and swallowed; the job table stays authoritative.
func (m *manager) recordOutcome(id string) {
	if m.history == nil {
		return
	}
	job, ok := m.store.Get(id)
	if !ok || !job.State.Terminal() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.history.Record(ctx, domain.HistoryEntry{
		ID:             job.ID,
		URL:            job.URL,
		Format:         job.Format,
		Quality:        job.Quality,
		State:          job.State,
		TotalBytes:     job.TotalBytes,
		OutputPath:     job.OutputPath,
		ErrorDetail:    job.ErrorDetail,
		RemoteLocation: job.RemoteLocation,
		CreatedAt:      job.CreatedAt,
		FinishedAt:     time.Now(),
	})
	if err != nil {
		m.cfg.Logger.WithField("job_id", id).Warnf("record history: %v", err)
	}
}

// offloadArtifact copies a completed artifact to object storage when a
// storage service is configured. The local file stays in place; only
// RemoteLocation is recorded.
func (m *manager) offloadArtifact(id, path string, logger *logrus.Entry) {
	if m.storage == nil {
		return
	}

	opts := m.cfg.UploadOptions
	prefix := strings.Trim(opts.KeyPrefix, "/")
	if prefix == "" {
		opts.KeyPrefix = id
	} else {
		opts.KeyPrefix = fmt.Sprintf("%s/%s", prefix, id)
	}

	progressLogger := newUploadProgressLogger(logger)
	opts.ProgressCallback = func(done, total int64) {
		progressLogger(done, total)
	}

	location, err := m.storage.UploadFile(m.ctx, path, opts)
	if err != nil {
		logger.Warnf("artifact offload failed: %v", err)
		return
	}

	m.store.Update(id, func(j *domain.Job) {
		j.RemoteLocation = location
	})
	logger.Infof("artifact offloaded to %s", location)
}

// SelectVariant picks the stream a fetch task will download. Only variants
// carrying both audio and video are eligible. A requested quality encoding a
// numeric resolution ("720p") matches on height; anything else falls back to
// the highest available.
func SelectVariant(variants []provider.Variant, quality string) (provider.Variant, bool) {
	target := parseQualityHeight(quality)

	var best provider.Variant
	found := false
	for _, v := range variants {
		if v.AudioChannels == 0 || !strings.Contains(v.MimeType, "video") {
			continue
		}
		if target > 0 && v.Height == target {
			return v, true
		}
		if !found || v.Height > best.Height {
			best = v
			found = true
		}
	}
	return best, found
}

func parseQualityHeight(quality string) int {
	if !strings.Contains(quality, "p") {
		return 0
	}
	i := 0
	for i < len(quality) && quality[i] >= '0' && quality[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0
	}
	height, err := strconv.Atoi(quality[:i])
	if err != nil {
		return 0
	}
	return height
}

// progressWriter recomputes progress as round(done/total*100) on every write
// when the total is known. With an unknown total, progress stays at zero for
// the whole transfer.
type progressWriter struct {
	out    io.Writer
	total  int64
	done   int64
	last   int
	report func(percent int)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n, err := w.out.Write(p)
	w.done += int64(n)
	if w.total > 0 && n > 0 {
		percent := int(math.Round(float64(w.done) / float64(w.total) * 100))
		if percent > 100 {
			percent = 100
		}
		if percent != w.last {
			w.last = percent
			w.report(percent)
		}
	}
	return n, err
}

// contextReader fails a streaming copy promptly once the task context is
// cancelled, so shutdown does not hang on a stalled source.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

func newUploadProgressLogger(logger *logrus.Entry) func(done, total int64) {
	var lastLog time.Time
	return func(done, total int64) {
		now := time.Now()
		if total == 0 {
			if now.Sub(lastLog) < 500*time.Millisecond && done != 0 {
				return
			}
			lastLog = now
			logger.Infof("offload progress: %s uploaded", formatBytes(done))
			return
		}

		percent := float64(done) / float64(total) * 100
		if now.Sub(lastLog) < 500*time.Millisecond && done != total {
			return
		}
		lastLog = now
		logger.Infof("offload progress: %.1f%% (%s/%s)", percent, formatBytes(done), formatBytes(total))
	}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB",
		float64(b)/float64(div),
		"KMGTPE"[exp],
	)
}

var _ Manager = (*manager)(nil)
