package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
	"github.com/secmon-lab/kizuna/pkg/utils/errutil"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPreloadTimeout     = 10 * time.Second
	defaultPreloadConcurrency = 8
)

// Resource kinds, used as the metrics label of fetch failures
const (
	resourceProfile        = "profile"
	resourceGroups         = "groups"
	resourceMembers        = "members"
	resourceSchedules      = "schedules"
	resourcePlaces         = "places"
	resourceLocation       = "location"
	resourceLocationCounts = "location-counts"
)

// Preloader fetches every resource of a user and writes it into the cache
type Preloader struct {
	fetcher     interfaces.ResourceFetcher
	cache       interfaces.Cache
	guard       *PreloadGuard
	timeout     time.Duration
	concurrency int
	metrics     *PreloadMetrics
	now         func() time.Time
	onComplete  func(ctx context.Context, userID types.UserID)

	// writeMu is held for reading by every cache write and for writing by Reset,
	// so no cancelled run writes after Reset returns.
	writeMu sync.RWMutex
	runsMu  sync.Mutex
	runs    map[string]context.CancelFunc
}

type PreloaderOption func(*Preloader)

// WithPreloadTimeout sets the watchdog bound after which the lock is released
func WithPreloadTimeout(d time.Duration) PreloaderOption {
	return func(p *Preloader) {
		p.timeout = d
	}
}

// WithPreloadCooldown sets how long a completed user is skipped
func WithPreloadCooldown(d time.Duration) PreloaderOption {
	return func(p *Preloader) {
		p.guard.cooldown = d
	}
}

// WithPreloadConcurrency limits the number of per-group fetches in flight
func WithPreloadConcurrency(n int) PreloaderOption {
	return func(p *Preloader) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithPreloadMetrics(m *PreloadMetrics) PreloaderOption {
	return func(p *Preloader) {
		p.metrics = m
	}
}

// WithPreloadClock replaces the clock used for periods and the cool-down, for tests
func WithPreloadClock(now func() time.Time) PreloaderOption {
	return func(p *Preloader) {
		p.now = now
		p.guard.now = now
	}
}

// WithPreloadCompleted registers the completion signal
func WithPreloadCompleted(fn func(ctx context.Context, userID types.UserID)) PreloaderOption {
	return func(p *Preloader) {
		p.onComplete = fn
	}
}

func NewPreloader(fetcher interfaces.ResourceFetcher, cache interfaces.Cache, opts ...PreloaderOption) *Preloader {
	p := &Preloader{
		fetcher:     fetcher,
		cache:       cache,
		guard:       NewPreloadGuard(DefaultPreloadCooldown, time.Now),
		timeout:     DefaultPreloadTimeout,
		concurrency: defaultPreloadConcurrency,
		now:         time.Now,
		runs:        make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Guard exposes the dedup state
func (p *Preloader) Guard() *PreloadGuard {
	return p.guard
}

// Preload fetches and caches every resource of userID. It blocks until the run
// ends but never fails: fetch errors are logged and skipped. A call made while
// another run holds the lock is dropped; a call for a user completed within the
// cool-down only signals completion.
func (p *Preloader) Preload(ctx context.Context, userID types.UserID, source string) {
	logger := logging.From(ctx).With("user_id", userID, "source", source)

	ticket, ok := p.guard.TryAcquire()
	if !ok {
		logger.Debug("preload already running, request dropped")
		p.metrics.runSkipped("busy")
		return
	}

	if p.guard.RecentlyCompleted(userID) {
		p.guard.Release(ticket)
		logger.Debug("preload completed recently, skipped")
		p.metrics.runSkipped("cooldown")
		p.complete(ctx, userID)
		return
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.track(runID, cancel)
	defer p.untrack(runID)

	logger = logger.With("run_id", runID)
	runCtx = logging.With(runCtx, logger)
	p.metrics.runStarted()
	logger.Info("preload started")

	watchdog := time.AfterFunc(p.timeout, func() {
		if p.guard.Release(ticket) {
			p.metrics.watchdog()
			logger.Warn("preload exceeded timeout, lock released", "timeout", p.timeout)
			p.complete(runCtx, userID)
		}
	})
	defer watchdog.Stop()

	started := time.Now()
	p.run(runCtx, userID)

	if runCtx.Err() != nil {
		p.guard.Release(ticket)
		logger.Info("preload cancelled")
		return
	}

	p.guard.MarkCompleted(userID)
	p.guard.Release(ticket)
	p.metrics.observeDuration(time.Since(started).Seconds())
	logger.Info("preload finished", "elapsed", time.Since(started))
	p.complete(runCtx, userID)
}

// Reset forgets completed users, frees the lock and cancels every running
// preload. Once it returns no cancelled run writes to the cache.
func (p *Preloader) Reset() {
	p.runsMu.Lock()
	for _, cancel := range p.runs {
		cancel()
	}
	p.runsMu.Unlock()

	p.writeMu.Lock()
	p.guard.Reset()
	p.writeMu.Unlock()
}

func (p *Preloader) track(runID string, cancel context.CancelFunc) {
	p.runsMu.Lock()
	defer p.runsMu.Unlock()
	p.runs[runID] = cancel
}

func (p *Preloader) untrack(runID string) {
	p.runsMu.Lock()
	defer p.runsMu.Unlock()
	delete(p.runs, runID)
}

func (p *Preloader) complete(ctx context.Context, userID types.UserID) {
	if p.onComplete != nil {
		p.onComplete(ctx, userID)
	}
}

func (p *Preloader) run(ctx context.Context, userID types.UserID) {
	var groups []model.Group

	var eg errgroup.Group
	eg.Go(fetchAndStore(ctx, p, resourceProfile, types.ProfileKey(userID), func(ctx context.Context) (*model.UserProfile, error) {
		return p.fetcher.GetProfile(ctx, userID)
	}))
	eg.Go(fetchAndStore(ctx, p, resourceGroups, types.GroupsKey(userID), func(ctx context.Context) ([]model.Group, error) {
		fetched, err := p.fetcher.GetGroups(ctx, userID)
		groups = fetched
		return fetched, err
	}))
	_ = eg.Wait()

	now := p.now()
	period := types.Period(now)
	date := types.Date(now)

	var fan errgroup.Group
	fan.SetLimit(p.concurrency)
	for _, g := range groups {
		if !g.HasRole() {
			continue
		}
		gid := g.ID

		fan.Go(fetchAndStore(ctx, p, resourceMembers, types.MembersKey(gid), func(ctx context.Context) ([]model.Member, error) {
			return p.fetcher.GetGroupMembers(ctx, gid)
		}))
		fan.Go(fetchAndStore(ctx, p, resourceSchedules, types.SchedulesKey(gid, period), func(ctx context.Context) ([]model.Schedule, error) {
			return p.fetcher.GetSchedules(ctx, gid, period)
		}))
		fan.Go(fetchAndStore(ctx, p, resourcePlaces, types.PlacesKey(gid), func(ctx context.Context) ([]model.Place, error) {
			return p.fetcher.GetPlaces(ctx, gid)
		}))
		fan.Go(fetchAndStore(ctx, p, resourceLocation, types.LocationKey(gid, date), func(ctx context.Context) (*model.LocationAggregate, error) {
			return p.fetcher.GetLocationAggregate(ctx, gid, date)
		}))
		fan.Go(fetchAndStore(ctx, p, resourceLocationCounts, types.LocationCountsKey(gid, period), func(ctx context.Context) ([]model.LocationCount, error) {
			return p.fetcher.GetDailyLocationCounts(ctx, gid, period)
		}))
	}
	_ = fan.Wait()
}

// fetchAndStore returns an errgroup task that fetches one resource and caches it.
// The task never returns an error so one failure does not affect its siblings.
func fetchAndStore[T any](ctx context.Context, p *Preloader, resource string, key types.CacheKey, fetch func(ctx context.Context) (T, error)) func() error {
	return func() error {
		if ctx.Err() != nil {
			return nil
		}

		value, err := fetch(ctx)
		if err != nil {
			p.metrics.fetchFailed(resource)
			errutil.Warn(ctx, err, "failed to fetch "+resource)
			return nil
		}

		p.writeMu.RLock()
		defer p.writeMu.RUnlock()
		if ctx.Err() != nil {
			return nil
		}
		if err := p.cache.Set(ctx, key, value); err != nil {
			errutil.Warn(ctx, err, "failed to cache "+resource)
		}
		return nil
	}
}
