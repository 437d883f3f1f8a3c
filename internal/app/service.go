// Package service implements the engagement ledger operations used by the
// HTTP API: recording sessions, practice days and activity, building the
// achievements and league views, and settling weekly leagues.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/okian/engage/internal/adapters/mq/queue"
	"github.com/okian/engage/internal/adapters/mq/worker"
	"github.com/okian/engage/internal/adapters/repository"
	"github.com/okian/engage/internal/domain/badge"
	"github.com/okian/engage/internal/domain/calendar"
	"github.com/okian/engage/internal/domain/dedupe"
	"github.com/okian/engage/internal/domain/ranking"
	"github.com/okian/engage/pkg/logger"
	"github.com/okian/engage/pkg/metrics"
)

const (
	defaultDedupeSize     = 50_000
	defaultAwardQueueSize = 1_000
	defaultAwardWorkers   = 2
	defaultSettleInterval = time.Minute
	runtimeStatsInterval  = 15 * time.Second
)

// Service implements the API dependencies for the engagement ledger.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	locks   *memberLocks
	cal     *calendar.Calendar
	catalog badge.Catalog
	clock   func() time.Time

	awardQueue *queue.InMemoryQueue
	awardPool  *worker.Pool

	leaderboardSize int
	dedupeSize      int
	awardQueueSize  int
	awardWorkers    int
	settleInterval  time.Duration

	settleMu    sync.Mutex
	lastSettled time.Time

	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the ledger store. The default is an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCalendar sets the timezone policy used for day keys and week resets.
func WithCalendar(cal *calendar.Calendar) Option {
	return func(s *Service) {
		if cal != nil {
			s.cal = cal
		}
	}
}

// WithCatalog replaces the badge catalog.
func WithCatalog(c badge.Catalog) Option {
	return func(s *Service) {
		if len(c) > 0 {
			s.catalog = c
		}
	}
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLeaderboardSize sets the default number of ranked rows.
func WithLeaderboardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardSize = n
		}
	}
}

// WithDedupeSize sets how many session event ids are remembered.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithAwardWorkers sets the number of league award workers.
func WithAwardWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.awardWorkers = n
		}
	}
}

// WithAwardQueueSize sets the award queue capacity.
func WithAwardQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.awardQueueSize = n
		}
	}
}

// WithSettleInterval sets how often the league settler checks for a
// finished week.
func WithSettleInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.settleInterval = d
		}
	}
}

// New constructs a Service. Read and write operations work immediately;
// Start launches the league settler and award workers.
func New(opts ...Option) *Service {
	s := &Service{
		cal:             calendar.UTC(),
		catalog:         badge.Default(),
		clock:           time.Now,
		leaderboardSize: ranking.DefaultLimit,
		dedupeSize:      defaultDedupeSize,
		awardQueueSize:  defaultAwardQueueSize,
		awardWorkers:    defaultAwardWorkers,
		settleInterval:  defaultSettleInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.Instrument(repository.NewMemoryStore())
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.Named("service")
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.locks = newMemberLocks()
	return s
}

func (s *Service) now() time.Time { return s.cal.In(s.clock()) }

// Calendar returns the timezone policy in use.
func (s *Service) Calendar() *calendar.Calendar { return s.cal }

// Catalog returns the badge catalog.
func (s *Service) Catalog() badge.Catalog { return s.catalog }

// Start launches the award workers and the league settler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting engagement service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.awardQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.awardQueueSize))
	s.awardPool = worker.NewPool(s.awardWorkers, s.awardQueue, s,
		worker.WithLogger(s.logger),
		worker.WithRetries(2, 100*time.Millisecond),
	)
	s.awardPool.Start(runCtx)

	s.wg.Add(2)
	go s.settleLoop(runCtx)
	go s.runtimeStatsLoop(runCtx)

	s.started = true
	s.logger.Info(ctx, "engagement service started",
		logger.Int("award_workers", s.awardWorkers),
		logger.Int("award_queue_size", s.awardQueueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.String("timezone", s.cal.Location().String()),
	)
	return nil
}

// Stop shuts down background work and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping engagement service...")
	cancel, pool := s.cancel, s.awardPool
	s.started = false
	s.awardQueue, s.awardPool = nil, nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	_ = pool.Shutdown(ctx)
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}
	s.logger.Info(ctx, "engagement service stopped")
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

func (s *Service) runtimeStatsLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(runtimeStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
			if m.NumGC > 0 {
				metrics.RecordSystemGCPauseTime(float64(m.PauseNs[(m.NumGC+255)%256]) / 1e6)
			}
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	last := s.LastSettled()
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"timezone":        s.cal.Location().String(),
		"leaderboardSize": s.leaderboardSize,
		"dedupeSize":      s.dedupeSize,
		"dedupeEntries":   s.deduper.Size(),
		"awardWorkers":    s.awardWorkers,
		"awardQueueSize":  s.awardQueueSize,
		"badges":          len(s.catalog),
	}
	if n, err := s.store.CountMembers(ctx); err == nil {
		stats["totalMembers"] = n
		metrics.UpdateTotalMembers(n)
	}
	if !last.IsZero() {
		stats["lastSettledWeek"] = last.Format(time.RFC3339)
	}
	if s.started {
		stats["awardQueueLength"] = s.awardQueue.Len(ctx)
		stats["awardsProcessed"] = s.awardPool.Processed()
		stats["awardsGranted"] = s.awardPool.Granted()
	}
	return stats
}
