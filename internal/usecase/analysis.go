package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/clock"
	"ContractGuard/internal/domain"
	"ContractGuard/internal/ports"
)

// AnalysisSettings tune the synthetic progress and the pacing of a job.
type AnalysisSettings struct {
	ProgressInterval      time.Duration
	BatchProgressInterval time.Duration
	StageInterval         time.Duration
	SingleCeiling         float64
	BatchCeiling          float64
	SingleStep            float64
	BatchStep             float64
	BatchPause            time.Duration
	CompletionDelay       time.Duration
	MaxImages             int
}

// DefaultAnalysisSettings mirrors the production pacing.
func DefaultAnalysisSettings() AnalysisSettings {
	return AnalysisSettings{
		ProgressInterval:      180 * time.Millisecond,
		BatchProgressInterval: 220 * time.Millisecond,
		StageInterval:         2200 * time.Millisecond,
		SingleCeiling:         92,
		BatchCeiling:          98,
		SingleStep:            2,
		BatchStep:             1.2,
		BatchPause:            80 * time.Millisecond,
		CompletionDelay:       900 * time.Millisecond,
		MaxImages:             9,
	}
}

// BalanceGate checks the session and balance before metered work and
// records what a finished job spent.
type BalanceGate interface {
	Guard() error
	Revalidate(ctx context.Context) (domain.Profile, error)
	SpendCredit()
}

// AnalysisDeps wires the orchestrator.
type AnalysisDeps struct {
	API             ports.AnalysisAPI
	Account         BalanceGate
	History         Clearer
	Compressor      ports.Compressor
	CompressOptions ports.CompressOptions
	Notifier        ports.Notifier
	Clock           clock.Clock
	Logger          *slog.Logger
	Settings        AnalysisSettings
	// Rand returns values in [0, 1); defaults to math/rand.
	Rand func() float64
	// NewBatchID defaults to b_<unix millis>_<random hex>.
	NewBatchID func(now time.Time) string
}

// Orchestrator drives submissions from guard check to delivered result.
type Orchestrator struct {
	api          ports.AnalysisAPI
	account      BalanceGate
	history      Clearer
	compressor   ports.Compressor
	compressOpts ports.CompressOptions
	notifier     ports.Notifier
	clock        clock.Clock
	logger       *slog.Logger
	settings     AnalysisSettings
	rnd          func() float64
	newBatchID   func(time.Time) string
}

// NewOrchestrator constructs the analysis use case.
func NewOrchestrator(deps AnalysisDeps) *Orchestrator {
	o := &Orchestrator{
		api:          deps.API,
		account:      deps.Account,
		history:      deps.History,
		compressor:   deps.Compressor,
		compressOpts: deps.CompressOptions,
		notifier:     deps.Notifier,
		clock:        deps.Clock,
		logger:       deps.Logger,
		settings:     deps.Settings,
		rnd:          deps.Rand,
		newBatchID:   deps.NewBatchID,
	}
	if o.clock == nil {
		o.clock = clock.System{}
	}
	if o.rnd == nil {
		o.rnd = rand.Float64
	}
	if o.newBatchID == nil {
		o.newBatchID = newBatchID
	}
	return o
}

func newBatchID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("b_%d_%s", now.UnixMilli(), suffix)
}

// Prepare is the fast local rejection path run before asking the user to
// confirm: the payload must be complete and, for metered payloads, the
// cached session and balance must allow the job. It makes no network call.
func (o *Orchestrator) Prepare(payload domain.UploadPayload) error {
	if err := payload.Validate(o.settings.MaxImages); err != nil {
		return err
	}
	if payload.RequiresAuth() && o.account != nil {
		return o.account.Guard()
	}
	return nil
}

// Job is one submission. It is driven by exactly one Run.
type Job struct {
	payload    domain.UploadPayload
	opts       domain.AnalysisOptions
	onProgress func(domain.Progress)
	meter      *Meter
	cancelled  atomic.Bool
	started    atomic.Bool
	done       chan struct{}

	// emitMu orders progress samples so observers see them non-decreasing.
	emitMu sync.Mutex

	mu      sync.Mutex
	state   domain.JobState
	batchID string
	result  domain.AnalysisResult
	err     error
}

// NewJob prepares a job in the idle state. onProgress may be nil; it is
// called from several goroutines but never concurrently.
func (o *Orchestrator) NewJob(payload domain.UploadPayload, opts domain.AnalysisOptions, onProgress func(domain.Progress)) *Job {
	ceiling, step := o.settings.SingleCeiling, o.settings.SingleStep
	if payload.Kind == domain.PayloadImages {
		ceiling, step = o.settings.BatchCeiling, o.settings.BatchStep
	}
	return &Job{
		payload:    payload,
		opts:       opts.Normalized(),
		onProgress: onProgress,
		meter:      NewMeter(ceiling, step, o.rnd),
		done:       make(chan struct{}),
	}
}

// Cancel asks the job to stop at its next stage boundary. Requests already
// in flight complete and their results are discarded.
func (j *Job) Cancel() { j.cancelled.Store(true) }

// Cancelled reports whether Cancel was called.
func (j *Job) Cancelled() bool { return j.cancelled.Load() }

// Done is closed once Run has returned.
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) State() domain.JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// BatchID is empty until an images job starts uploading.
func (j *Job) BatchID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.batchID
}

func (j *Job) Progress() domain.Progress {
	pct, stage := j.meter.Snapshot()
	return domain.Progress{Percent: pct, Stage: stage, State: j.State()}
}

// Wait blocks until the job ends or ctx is done.
func (j *Job) Wait(ctx context.Context) (domain.AnalysisResult, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return domain.AnalysisResult{}, ctx.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

func (j *Job) setState(s domain.JobState) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
	j.emit()
}

func (j *Job) emit() {
	j.emitMu.Lock()
	defer j.emitMu.Unlock()
	if j.onProgress != nil {
		j.onProgress(j.Progress())
	}
}

// checkpoint is evaluated at every stage boundary.
func (j *Job) checkpoint(ctx context.Context, op string) error {
	if j.cancelled.Load() {
		return apperr.Cancelled(op)
	}
	if err := ctx.Err(); err != nil {
		return ownerGone(op, err)
	}
	return nil
}

func ownerGone(op string, err error) error {
	return &apperr.Error{Kind: apperr.KindCancelled, Op: op, Message: "job owner went away", Err: err}
}

// Start runs a new job in the background. Cancelling ctx tears the job down
// and aborts in-flight requests; Job.Cancel stops it cooperatively.
func (o *Orchestrator) Start(ctx context.Context, payload domain.UploadPayload, opts domain.AnalysisOptions, onProgress func(domain.Progress)) *Job {
	job := o.NewJob(payload, opts, onProgress)
	go func() {
		_, _ = o.Run(ctx, job)
	}()
	return job
}

// Run drives job to a terminal state and returns its outcome.
func (o *Orchestrator) Run(ctx context.Context, job *Job) (domain.AnalysisResult, error) {
	if !job.started.CompareAndSwap(false, true) {
		return domain.AnalysisResult{}, errors.New("analysis job already started")
	}
	defer close(job.done)

	result, err := o.execute(ctx, job)
	if err != nil {
		err = o.fail(ctx, job, err)
		result = domain.AnalysisResult{}
	}

	job.mu.Lock()
	job.result, job.err = result, err
	job.mu.Unlock()
	return result, err
}

func (o *Orchestrator) execute(ctx context.Context, job *Job) (domain.AnalysisResult, error) {
	if err := job.payload.Validate(o.settings.MaxImages); err != nil {
		return domain.AnalysisResult{}, err
	}
	if err := job.checkpoint(ctx, "revalidate balance"); err != nil {
		return domain.AnalysisResult{}, err
	}
	if job.payload.RequiresAuth() && o.account != nil {
		if _, err := o.account.Revalidate(ctx); err != nil {
			return domain.AnalysisResult{}, err
		}
	}
	if err := job.checkpoint(ctx, "start upload"); err != nil {
		return domain.AnalysisResult{}, err
	}

	job.setState(domain.JobUploading)
	ticks := o.startTicks(job)
	defer ticks.Stop()

	o.info("analysis started", "payload", job.payload.Label(), "type", job.opts.ContractType, "identity", job.opts.Identity)

	result, err := o.dispatch(ctx, job)
	if err == nil {
		err = job.checkpoint(ctx, "accept result")
	}
	ticks.Stop()
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	job.meter.Complete()
	job.setState(domain.JobSucceeded)
	if job.payload.RequiresAuth() && o.account != nil {
		o.account.SpendCredit()
	}
	if o.history != nil {
		o.history.Clear()
	}
	o.info("analysis succeeded", "id", result.ID, "score", result.Score)

	if err := o.clock.Sleep(ctx, o.settings.CompletionDelay); err != nil {
		return domain.AnalysisResult{}, ownerGone("deliver result", err)
	}
	if err := job.checkpoint(ctx, "deliver result"); err != nil {
		return domain.AnalysisResult{}, err
	}
	return result, nil
}

func (o *Orchestrator) startTicks(job *Job) *Ticks {
	interval := o.settings.ProgressInterval
	if job.payload.Kind == domain.PayloadImages {
		interval = o.settings.BatchProgressInterval
	}
	return StartTicks(o.clock, interval, o.settings.StageInterval,
		func() {
			job.meter.Tick()
			job.emit()
		},
		func() {
			job.meter.NextStage()
			job.emit()
		},
	)
}

func (o *Orchestrator) dispatch(ctx context.Context, job *Job) (domain.AnalysisResult, error) {
	switch job.payload.Kind {
	case domain.PayloadText:
		res, err := o.api.AnalyzeText(ctx, job.payload.Content, job.opts)
		if err != nil {
			return res, fmt.Errorf("analyze text: %w", err)
		}
		return res, nil
	case domain.PayloadFile:
		res, err := o.api.AnalyzeFile(ctx, job.payload.File, job.opts)
		if err != nil {
			return res, fmt.Errorf("analyze file: %w", err)
		}
		return res, nil
	case domain.PayloadImages:
		return o.runBatch(ctx, job)
	}
	return domain.AnalysisResult{}, apperr.New(apperr.KindInvalidInput, "dispatch", fmt.Sprintf("unknown payload kind %q", job.payload.Kind))
}

func (o *Orchestrator) runBatch(ctx context.Context, job *Job) (domain.AnalysisResult, error) {
	files := o.compress(ctx, job.payload.Images)
	total := len(files)

	batchID := o.newBatchID(o.clock.Now())
	job.mu.Lock()
	job.batchID = batchID
	job.mu.Unlock()

	// Batches are known to be slow; skip straight to the last waiting stage.
	job.meter.JumpStage(domain.StageMax)
	job.emit()

	for i, file := range files {
		idx := i + 1
		if err := job.checkpoint(ctx, fmt.Sprintf("upload page %d", idx)); err != nil {
			return domain.AnalysisResult{}, err
		}

		ack, err := o.api.UploadBatchPart(ctx, ports.BatchPart{
			BatchID: batchID,
			Index:   idx,
			Total:   total,
			File:    file,
			Options: job.opts,
		})
		if err != nil {
			return domain.AnalysisResult{}, fmt.Errorf("upload page %d of %d: %w", idx, total, err)
		}
		if err := job.checkpoint(ctx, fmt.Sprintf("accept page %d", idx)); err != nil {
			return domain.AnalysisResult{}, err
		}

		if ack.Meta != nil && ack.Meta.ProcessedImages > 0 {
			job.meter.Raise(BatchTarget(ack.Meta.ProcessedImages, total))
			job.emit()
		}
		o.debug("page uploaded", "batch_id", batchID, "idx", idx, "total", total)

		if err := o.clock.Sleep(ctx, o.settings.BatchPause); err != nil {
			return domain.AnalysisResult{}, ownerGone("pause after upload", err)
		}
	}

	if err := job.checkpoint(ctx, "finalize batch"); err != nil {
		return domain.AnalysisResult{}, err
	}
	job.setState(domain.JobFinalizing)

	res, err := o.api.FinalizeBatch(ctx, batchID)
	if err != nil {
		return res, fmt.Errorf("finalize batch %s: %w", batchID, err)
	}
	return res, nil
}

// compress downsizes page photos; pages that fail keep their original file.
func (o *Orchestrator) compress(ctx context.Context, files []domain.FileRef) []domain.FileRef {
	out := make([]domain.FileRef, len(files))
	copy(out, files)
	if o.compressor == nil {
		return out
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	compressed := o.compressor.Compress(ctx, paths, o.compressOpts)
	if len(compressed) != len(files) {
		o.warn("compressor returned a different page count, uploading originals", "want", len(files), "got", len(compressed))
		return out
	}
	for i, p := range compressed {
		if p == "" || p == out[i].Path {
			continue
		}
		out[i].Path = p
		if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(p))); t != "" {
			out[i].MimeType = t
		}
	}
	return out
}

// fail moves the job to Cancelled or Failed. Only real failures are
// reported to the user.
func (o *Orchestrator) fail(ctx context.Context, job *Job, err error) error {
	if job.cancelled.Load() || ctx.Err() != nil || apperr.IsKind(err, apperr.KindCancelled) {
		if !apperr.IsKind(err, apperr.KindCancelled) {
			err = &apperr.Error{Kind: apperr.KindCancelled, Op: "analyze", Message: "cancelled", Err: err}
		}
		job.setState(domain.JobCancelled)
		o.info("analysis cancelled", "payload", job.payload.Label(), "batch_id", job.BatchID())
		return err
	}

	job.setState(domain.JobFailed)
	var ae *apperr.Error
	if errors.As(err, &ae) {
		o.warn("analysis failed",
			"kind", ae.Kind,
			"status", ae.StatusCode,
			"code", ae.Code,
			"diagnostic", ae.Message,
			"error", err,
		)
	} else {
		o.warn("analysis failed", "error", err)
	}
	if o.notifier != nil {
		o.notifier.Toast(apperr.UserMessage(err))
	}
	return err
}

func (o *Orchestrator) info(msg string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o *Orchestrator) debug(msg string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func (o *Orchestrator) warn(msg string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}
