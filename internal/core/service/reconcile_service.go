package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rl1809/inventory-metafields/internal/core/domain"
	"github.com/rl1809/inventory-metafields/internal/port"
)

const (
	lockKey        = "inventory-metafields:reconcile"
	defaultLockTTL = 10 * time.Minute
	storeTimeout   = 5 * time.Second
)

var (
	ErrRunInProgress = errors.New("reconciliation already in progress")
	ErrShuttingDown  = errors.New("reconciler is shutting down")
	ErrMissingCursor = errors.New("page reports more results without an end cursor")
)

// Settings controls what a reconciliation reads and writes.
type Settings struct {
	Locations domain.Locations
	Keys      domain.MetafieldKeys
	Pause     time.Duration // slept after every product
	LockTTL   time.Duration
	DryRun    bool
}

// RunObserver is told about every run once its record is final.
type RunObserver interface {
	RunFinished(run domain.Run)
}

type Option func(*Reconciler)

func WithMetrics(m port.Metrics) Option {
	return func(r *Reconciler) {
		if m != nil {
			r.metrics = m
		}
	}
}

func WithObserver(o RunObserver) Option {
	return func(r *Reconciler) {
		r.observers = append(r.observers, o)
	}
}

type Reconciler struct {
	catalog   port.CatalogRepository
	runs      port.RunRepository
	lock      port.LockRepository
	metrics   port.Metrics
	observers []RunObserver
	settings  Settings
	logger    *zerolog.Logger

	wait func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	active *Job
	closed bool
	wg     sync.WaitGroup
}

func NewReconciler(
	catalog port.CatalogRepository,
	runs port.RunRepository,
	lock port.LockRepository,
	settings Settings,
	logger *zerolog.Logger,
	opts ...Option,
) *Reconciler {
	if settings.LockTTL <= 0 {
		settings.LockTTL = defaultLockTTL
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	r := &Reconciler{
		catalog:  catalog,
		runs:     runs,
		lock:     lock,
		metrics:  nopMetrics{},
		settings: settings,
		logger:   logger,
		wait:     sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trigger starts a reconciliation in the background and returns its handle.
// The run outlives ctx's cancellation; use Job.Cancel or Shutdown to stop it.
// If a run is already active the active job is returned with ErrRunInProgress.
func (r *Reconciler) Trigger(ctx context.Context) (*Job, error) {
	run := domain.Run{
		ID:        uuid.NewString(),
		Status:    domain.RunStatusRunning,
		DryRun:    r.settings.DryRun,
		StartedAt: time.Now(),
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := newJob(run, cancel)

	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		cancel()
		return nil, ErrShuttingDown
	case r.active != nil:
		active := r.active
		r.mu.Unlock()
		cancel()
		return active, ErrRunInProgress
	}
	r.active = job
	r.wg.Add(1)
	r.mu.Unlock()

	// The slot is reserved; store I/O happens outside the mutex.
	if err := r.begin(ctx, run); err != nil {
		cancel()
		r.release(job)
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		job.finish(run, err)
		r.wg.Done()
		return nil, err
	}

	go func() {
		defer r.wg.Done()
		defer cancel()

		final, err := r.execute(runCtx, job)
		r.release(job)
		job.finish(final, err)
	}()

	return job, nil
}

func (r *Reconciler) release(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == job {
		r.active = nil
	}
}

// Reconcile runs a reconciliation to completion. Cancelling ctx cancels the run.
func (r *Reconciler) Reconcile(ctx context.Context) (domain.Run, error) {
	job, err := r.Trigger(ctx)
	if err != nil {
		return domain.Run{}, err
	}

	select {
	case <-job.Done():
	case <-ctx.Done():
		job.Cancel()
		<-job.Done()
	}
	return job.Run(), job.Err()
}

// Active returns the running job, or nil.
func (r *Reconciler) Active() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Shutdown cancels the active run and waits for it to record its outcome.
// Later calls to Trigger fail with ErrShuttingDown.
func (r *Reconciler) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	job := r.active
	r.mu.Unlock()

	if job != nil {
		job.Cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) begin(ctx context.Context, run domain.Run) error {
	ok, err := r.lock.Acquire(ctx, lockKey, run.ID, r.settings.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire reconcile lock: %w", err)
	}
	if !ok {
		return ErrRunInProgress
	}

	if err := r.runs.CreateRun(ctx, run); err != nil {
		r.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record run start")
	}
	return nil
}

func (r *Reconciler) execute(ctx context.Context, job *Job) (domain.Run, error) {
	run := job.Run()
	logger := r.logger.With().Str("run_id", run.ID).Bool("dry_run", run.DryRun).Logger()
	logger.Info().Msg("reconciliation started")

	err := r.walk(ctx, &run, job, &logger)
	r.finish(ctx, &run, err, &logger)
	return run, err
}

func (r *Reconciler) walk(ctx context.Context, run *domain.Run, job *Job, logger *zerolog.Logger) error {
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := r.catalog.ListProducts(ctx, cursor)
		if err != nil {
			return fmt.Errorf("fetch products page %d: %w", run.Pages+1, err)
		}
		run.Pages++
		r.metrics.PageFetched()

		if err := r.extendLock(ctx, run.ID); err != nil {
			return err
		}

		for _, product := range page.Products {
			outcome, err := r.reconcileProduct(ctx, product, run.DryRun, logger)
			if err != nil {
				return fmt.Errorf("reconcile product %s: %w", product.ID, err)
			}

			run.ProductsScanned++
			if outcome == port.OutcomeSkipped {
				run.ProductsSkipped++
			} else {
				run.ProductsUpdated++
			}
			r.metrics.ProductReconciled(outcome)
			job.setRun(*run)

			if err := r.wait(ctx, r.settings.Pause); err != nil {
				return err
			}
			// A page can outlast the TTL, so the lock is renewed per product.
			if err := r.extendLock(ctx, run.ID); err != nil {
				return err
			}
		}

		if !page.PageInfo.HasNextPage {
			return nil
		}
		if page.PageInfo.EndCursor == "" {
			return ErrMissingCursor
		}
		cursor = page.PageInfo.EndCursor
	}
}

func (r *Reconciler) extendLock(ctx context.Context, owner string) error {
	if err := r.lock.Extend(ctx, lockKey, owner, r.settings.LockTTL); err != nil {
		return fmt.Errorf("extend reconcile lock: %w", err)
	}
	return nil
}

func (r *Reconciler) reconcileProduct(ctx context.Context, product domain.Product, dryRun bool, logger *zerolog.Logger) (string, error) {
	want := Aggregate(product, r.settings.Locations)

	fields, err := r.catalog.ListMetafields(ctx, product.ID, r.settings.Keys.Namespace)
	if err != nil {
		return "", fmt.Errorf("fetch metafields: %w", err)
	}
	have := CurrentQuantities(fields, r.settings.Keys)

	if want == have {
		logger.Info().Str("product", product.Title).Msg("skipped update, no change in quantity")
		return port.OutcomeSkipped, nil
	}

	if dryRun {
		logger.Info().
			Str("product", product.Title).
			Int("warehouse", want.Warehouse).
			Int("vendor", want.Vendor).
			Int("stored_warehouse", have.Warehouse).
			Int("stored_vendor", have.Vendor).
			Msg("would update product")
		return port.OutcomeDryRun, nil
	}

	userErrs, err := r.catalog.SetMetafields(ctx, QuantityMetafields(product.ID, want, r.settings.Keys))
	if err != nil {
		return "", fmt.Errorf("set metafields: %w", err)
	}
	for _, ue := range userErrs {
		logger.Warn().Str("product", product.Title).Strs("field", ue.Field).Msg(ue.Message)
	}

	logger.Info().
		Str("product", product.Title).
		Int("warehouse", want.Warehouse).
		Int("vendor", want.Vendor).
		Msg("updated product")
	return port.OutcomeUpdated, nil
}

func (r *Reconciler) finish(ctx context.Context, run *domain.Run, err error, logger *zerolog.Logger) {
	now := time.Now()
	run.FinishedAt = &now

	switch {
	case err == nil:
		run.Status = domain.RunStatusSucceeded
	case errors.Is(err, context.Canceled):
		run.Status = domain.RunStatusCancelled
		run.Error = err.Error()
	default:
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if err := r.runs.UpdateRun(storeCtx, *run); err != nil {
		logger.Warn().Err(err).Msg("failed to record run outcome")
	}
	if err := r.lock.Release(storeCtx, lockKey, run.ID); err != nil {
		logger.Warn().Err(err).Msg("failed to release reconcile lock")
	}

	r.metrics.RunFinished(string(run.Status), now.Sub(run.StartedAt))
	for _, o := range r.observers {
		o.RunFinished(*run)
	}

	if err != nil {
		logger.Error().Err(err).
			Int("pages", run.Pages).
			Int("scanned", run.ProductsScanned).
			Int("updated", run.ProductsUpdated).
			Msg("reconciliation aborted")
		return
	}
	logger.Info().
		Int("pages", run.Pages).
		Int("scanned", run.ProductsScanned).
		Int("updated", run.ProductsUpdated).
		Int("skipped", run.ProductsSkipped).
		Dur("elapsed", now.Sub(run.StartedAt)).
		Msg("metafields updated with inventory quantities")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopMetrics struct{}

func (nopMetrics) PageFetched()                      {}
func (nopMetrics) ProductReconciled(string)          {}
func (nopMetrics) RunFinished(string, time.Duration) {}
