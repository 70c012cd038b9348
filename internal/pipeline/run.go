// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"maptools-cli/internal/audit"
	"maptools-cli/internal/clock"
	"maptools-cli/internal/engine"
	"maptools-cli/internal/fsutil"
	"maptools-cli/internal/packager"
	"maptools-cli/internal/sanitize"
	"maptools-cli/pkg/types"
	"maptools-cli/pkg/vpk"
)

// Progress milestones.
const (
	progressIngested  = 30
	progressAudited   = 30
	progressRebuilt   = 50
	progressSanitized = 60
	progressServer    = 90
	progressDone      = 100
)

// run is the state of one job execution. It is confined to the job goroutine.
type run struct {
	c       *Controller
	job     Job
	events  chan<- Event
	logger  *log.Logger
	remover *fsutil.Remover

	id       string
	staging  string
	state    State
	progress int
	auto     bool
	produced []string
	result   *Result
}

func newRun(c *Controller, job Job, events chan<- Event) *run {
	id := uuid.NewString()
	logger := c.logger.With("job", id[:8])
	retry := job.Retry
	if retry.Attempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &run{
		c:       c,
		job:     job,
		events:  events,
		logger:  logger,
		remover: fsutil.NewRemover(retry.Attempts, retry.Delay).WithLogger(logger),
		id:      id,
		staging: filepath.Join(job.outputDir(), ".maptools-"+id),
		auto:    job.AutoRebuild,
		result:  &Result{JobID: id, DictionaryChecked: job.CheckDictionary},
	}
}

func (r *run) emit(ev Event) {
	ev.Time = r.c.clock.Now()
	r.events <- ev
}

func (r *run) enter(s State) {
	r.state = s
	r.logger.Debug("state", "state", s)
	r.emit(Event{Kind: EventState, State: s})
}

func (r *run) setProgress(p int) {
	if p <= r.progress {
		return
	}
	r.progress = p
	r.emit(Event{Kind: EventProgress, Percent: p})
}

func (r *run) logf(level log.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Log(level, msg)
	r.emit(Event{Kind: EventLog, Level: level, Message: clock.Stamp(r.c.clock) + " " + msg})
}

func (r *run) warnf(format string, args ...any) {
	r.result.Warnings = append(r.result.Warnings, fmt.Sprintf(format, args...))
	r.logf(log.WarnLevel, format, args...)
}

// execute runs every stage. The staging root is removed, and on failure
// every artifact the job produced is removed, before it returns.
func (r *run) execute(ctx context.Context) (res *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &JobFailure{Stage: r.state, Err: fmt.Errorf("panic: %v", rec)}
		}
		if err != nil {
			if errors.Is(err, context.Canceled) && !errors.Is(err, ErrUserCancelled) {
				err = &UserCancelledError{Err: err}
			}
			err = classify(r.state, err)
			r.discardOutputs()
			r.logf(log.ErrorLevel, "error: %v", err)
			r.enter(StateFailed)
		}
		r.teardown()
		if err != nil {
			res = nil
		}
	}()

	if err := r.job.Validate(); err != nil {
		return nil, &JobFailure{Stage: StatePending, Err: err}
	}

	content, base, err := r.ingest(ctx)
	if err != nil {
		return nil, err
	}
	r.result.BaseName = base

	if err := r.auditAndRebuild(ctx, content); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &UserCancelledError{Err: err}
	}
	r.logf(log.InfoLevel, "%s", r.result.Summary())

	if r.result.Rebuilt > 0 {
		r.enter(StateClientPackaging)
		client := filepath.Join(r.job.outputDir(), ClientContainerName(base))
		if err := r.encode(content, client); err != nil {
			return nil, err
		}
		r.result.ClientOutputPath = client
		r.logf(log.InfoLevel, "client package written: %s", filepath.Base(client))
	}

	r.enter(StateSanitizing)
	removed, err := sanitize.Sanitize(content)
	if err != nil {
		return nil, err
	}
	r.result.Removed = removed
	r.logf(log.InfoLevel, "removed %d server-irrelevant files", len(removed))
	r.setProgress(progressSanitized)

	r.enter(StateServerPackaging)
	server := filepath.Join(r.job.outputDir(), ServerContainerName(base))
	if err := r.encode(content, server); err != nil {
		return nil, err
	}
	r.result.ServerOutputPath = server
	r.setProgress(progressServer)

	if format := r.job.format(); format.IsArchive() {
		r.enter(StateCompressing)
		if err := r.compress(ctx, format); err != nil {
			return nil, err
		}
	}

	r.setProgress(progressDone)
	r.logf(log.InfoLevel, "done")
	r.enter(StateDone)
	return r.result, nil
}

func (r *run) ingest(ctx context.Context) (content, base string, err error) {
	r.enter(StateIngesting)
	r.setProgress(1)
	if err := os.MkdirAll(r.staging, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	r.logf(log.InfoLevel, "reading %s", filepath.Base(r.job.InputPath))
	ing, err := newIngester(r.logger).Ingest(ctx, r.job.InputPath, r.staging)
	if err != nil {
		return "", "", err
	}
	if len(ing.Containers) > 1 {
		r.logf(log.InfoLevel, "merged %d containers, %d overlapping entries (later containers win)",
			len(ing.Containers), len(ing.Overwritten))
	}
	if ing.ExtractDir != "" {
		if err := r.remover.Remove(ing.ExtractDir); err != nil {
			r.logger.Debug("extraction directory not removed yet", "error", err)
		}
	}
	r.setProgress(progressIngested)

	base = ing.BaseName
	if r.job.OutputName != "" {
		base = r.job.OutputName
	}
	if err := types.PortableName(base).Validate(); err != nil {
		r.warnf("non-portable output name, servers may fail to load it: %v", err)
	}
	return ing.ContentDir, base, nil
}

func (r *run) auditAndRebuild(ctx context.Context, content string) error {
	r.enter(StateAuditing)
	if !r.job.CheckDictionary {
		r.setProgress(progressRebuilt)
		return nil
	}

	report, err := audit.Scan(ctx, content)
	if err != nil {
		return err
	}
	r.result.Levels = len(report.Assets)
	r.result.MapsDirMissing = report.MapsDirMissing
	if report.MapsDirMissing {
		r.warnf("no maps directory found")
	}
	for _, a := range report.Assets {
		if a.HasDictionary {
			r.logf(log.InfoLevel, "%s: dictionary present", a.Name)
		} else {
			r.logf(log.WarnLevel, "%s: dictionary missing", a.Name)
		}
	}
	r.setProgress(progressAudited)

	deficient := report.Deficient()
	if len(deficient) == 0 {
		r.setProgress(progressRebuilt)
		return nil
	}

	// Authorization comes before engine resolution so a decline never
	// triggers an engine-path prompt.
	if err := r.authorize(ctx, deficient[0]); err != nil {
		return err
	}
	builder, err := r.builder(ctx)
	if err != nil {
		return err
	}
	r.checkSteam(ctx)

	for i, asset := range deficient {
		if i > 0 {
			if err := r.authorize(ctx, asset); err != nil {
				return err
			}
		}
		r.enter(StateRebuilding)
		r.logf(log.InfoLevel, "rebuilding dictionary for %s", asset.Name)

		o := builder.Rebuild(ctx, asset)
		r.result.Attempted++
		r.result.Outcomes = append(r.result.Outcomes, o)
		switch {
		case o.Reason == engine.ReasonCancelled:
			return &UserCancelledError{Asset: asset.Name, Err: o.Err}
		case o.Status == engine.StatusRebuilt:
			r.result.Rebuilt++
			r.logf(log.InfoLevel, "%s: rebuilt in %s", asset.Name, o.Elapsed.Round(time.Millisecond))
		default:
			r.logf(log.WarnLevel, "%s: rebuild failed (%s), rebuild it manually", asset.Name, failureText(o))
		}
		r.setProgress(progressAudited + (progressRebuilt-progressAudited)*(i+1)/len(deficient))
	}
	return nil
}

func failureText(o engine.Outcome) string {
	if o.Err != nil {
		return o.Reason + ": " + o.Err.Error()
	}
	return o.Reason
}

// authorize returns nil when asset may be rebuilt.
func (r *run) authorize(ctx context.Context, asset audit.MapAsset) error {
	if r.auto {
		return nil
	}
	a := asset
	r.emit(Event{Kind: EventAuthorization, Asset: &a})
	r.logf(log.InfoLevel, "%s needs a rebuild, waiting for confirmation", asset.Name)

	if r.c.authorizer == nil {
		return &UserCancelledError{Asset: asset.Name}
	}

	select {
	case d, ok := <-r.c.authorizer.RequestRebuild(ctx, asset):
		switch {
		case !ok:
			return &UserCancelledError{Asset: asset.Name}
		case d.Err != nil:
			return fmt.Errorf("rebuild authorization failed: %w", d.Err)
		case !d.Proceed:
			return &UserCancelledError{Asset: asset.Name}
		}
	case <-ctx.Done():
		return &UserCancelledError{Asset: asset.Name, Err: ctx.Err()}
	}

	r.auto = true
	return nil
}

func (r *run) builder(ctx context.Context) (*engine.Builder, error) {
	path := r.job.EnginePath
	if path == "" && r.c.resolver != nil {
		resolved, err := r.c.resolver.ResolveEngine(ctx)
		if err != nil {
			return nil, &engine.MissingEngineConfigurationError{Reason: err.Error()}
		}
		path = resolved
	}

	b, err := engine.NewBuilder(engine.Config{
		EnginePath:    path,
		GameDir:       r.job.GameDir,
		LaunchOptions: r.job.launchOptions(),
		Timeout:       r.job.EngineTimeout,
		Runner:        r.c.runner,
		Logger:        r.logger.WithPrefix("engine"),
		Clock:         r.c.clock,
		Remover:       r.remover,
		LockDir:       r.c.lockDir,
	})
	if err != nil {
		return nil, err
	}
	if err := b.CheckEngine(); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *run) checkSteam(ctx context.Context) {
	if r.c.steamCheck == nil {
		return
	}
	running, err := r.c.steamCheck(ctx)
	switch {
	case err != nil:
		r.logger.Debug("steam check failed", "error", err)
	case !running:
		r.warnf("Steam is not running; the engine may be unable to rebuild dictionaries")
	}
}

// encode packs content into dest. dest is only recorded as produced once
// it is complete.
func (r *run) encode(content, dest string) error {
	a, err := vpk.FromDir(content)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := a.Save(dest); err != nil {
		return err
	}
	r.produced = append(r.produced, dest)
	return nil
}

func (r *run) compress(ctx context.Context, format types.OutputFormat) error {
	p := packager.New(packager.WithLogger(r.logger.WithPrefix("packager")), packager.WithRemover(r.remover))
	r.logf(log.InfoLevel, "compressing to %s", format)

	targets := []*string{&r.result.ServerOutputPath}
	if r.result.ClientOutputPath != "" {
		targets = append(targets, &r.result.ClientOutputPath)
	}
	for _, t := range targets {
		out, err := p.Compress(ctx, *t, format)
		if err != nil {
			return err
		}
		r.replaceProduced(*t, out)
		*t = out
	}
	return nil
}

func (r *run) replaceProduced(old, repl string) {
	for i, p := range r.produced {
		if p == old {
			r.produced[i] = repl
		}
	}
}

// discardOutputs removes every artifact of a failed job, so a failure never
// leaves a package that looks complete.
func (r *run) discardOutputs() {
	for _, p := range r.produced {
		if err := r.remover.Remove(p); err != nil {
			r.logger.Warn("failed to remove output of failed job", "path", p, "error", err)
		}
	}
	r.produced = nil
}

func (r *run) teardown() {
	err := r.remover.Remove(r.staging)
	var contention *fsutil.FilesystemContentionError
	switch {
	case err == nil:
	case errors.As(err, &contention):
		msg := fmt.Sprintf("staging directory %s could not be removed after %d attempts", r.staging, contention.Attempts)
		r.result.Warnings = append(r.result.Warnings, msg)
		r.logger.Warn(msg, "error", contention.Last)
	default:
		r.logger.Warn("staging teardown failed", "error", err)
	}
}
