// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package loader

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/tomtom215/cinebrain/internal/cache"
	"github.com/tomtom215/cinebrain/internal/client"
	"github.com/tomtom215/cinebrain/internal/config"
	"github.com/tomtom215/cinebrain/internal/content"
	"github.com/tomtom215/cinebrain/internal/inflight"
	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/metrics"
	"github.com/tomtom215/cinebrain/internal/models"
)

var (
	// ErrUnknownRow is returned by Retry for a row id that is not configured.
	ErrUnknownRow = errors.New("unknown row")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("loader closed")
)

// Metric tier labels.
const (
	tierHigh   = "high"
	tierLow    = "low"
	tierRetry  = "retry"
	tierResume = "resume"
)

// Fetcher retrieves the items of one row. *client.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params map[string]string, timeout time.Duration) ([]models.ContentItem, error)
	Authenticated() bool
}

// Config holds the loader timings and sort settings.
type Config struct {
	HighPriorityCutoff int
	StaggerDelay       time.Duration
	LowPriorityDelay   time.Duration
	FreshnessWindow    time.Duration
	LanguagePriority   []string
}

// ConfigFrom extracts the loader settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		HighPriorityCutoff: cfg.Loader.HighPriorityCutoff,
		StaggerDelay:       cfg.Loader.StaggerDelay,
		LowPriorityDelay:   cfg.Loader.LowPriorityDelay,
		FreshnessWindow:    cfg.Cache.FreshnessWindow,
		LanguagePriority:   cfg.Sorting.LanguagePriority,
	}
}

// Event is delivered to subscribers on every phase change (Row is nil) and
// every row change.
type Event struct {
	Phase models.LoaderPhase
	Row   *models.RowState

	seq uint64
}

// Option configures a Loader.
type Option func(*Loader)

// WithClock replaces time.Now for freshness checks and release-date sorting.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		l.now = now
	}
}

type rowEntry struct {
	cfg   models.RowConfig
	state models.RowState
	seq   uint64

	// canceled is set while the row shows an aborted request.
	canceled bool
}

// cycle is one page load. Its context is canceled when a newer Load
// starts, on Suspend and on Close.
type cycle struct {
	ctx    context.Context
	cancel context.CancelFunc
	start  time.Time
	done   chan struct{}
	once   sync.Once
}

type listener struct {
	id uint64
	fn func(Event)
}

// Loader drives the staggered page load and owns the row table.
type Loader struct {
	fetcher Fetcher
	cache   *cache.Cache
	cfg     Config
	now     func() time.Time

	// rows is sorted by priority and never modified after New.
	rows  []models.RowConfig
	slots inflight.Slots

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu           sync.Mutex
	phase        models.LoaderPhase
	states       map[string]*rowEntry
	seq          uint64
	cycle        *cycle
	suspended    []string
	closed       bool
	listeners    []listener
	nextListener uint64
	disposers    []func()

	// emitMu orders delivery; delivered drops row events older than the
	// last one delivered for the same row.
	emitMu    sync.Mutex
	delivered map[string]uint64
}

// New creates a loader for rows. Rows are ordered by priority; on duplicate
// ids the first row wins. A nil cache gets a private in-memory cache.
func New(fetcher Fetcher, c *cache.Cache, rows []models.RowConfig, cfg Config, opts ...Option) *Loader {
	if c == nil {
		c = cache.New()
	}
	if cfg.LanguagePriority == nil {
		cfg.LanguagePriority = content.DefaultLanguagePriority
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		fetcher:   fetcher,
		cache:     c,
		cfg:       cfg,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		phase:     models.PhaseIdle,
		states:    make(map[string]*rowEntry, len(rows)),
		delivered: make(map[string]uint64, len(rows)),
	}
	for _, opt := range opts {
		opt(l)
	}

	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b models.RowConfig) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	for _, row := range sorted {
		if _, dup := l.states[row.ID]; dup {
			logging.Warn().Str("row", row.ID).Msg("Duplicate row id ignored")
			continue
		}
		l.rows = append(l.rows, row)
		l.states[row.ID] = &rowEntry{
			cfg: row,
			state: models.RowState{
				ID:       row.ID,
				Title:    row.Title,
				Priority: row.Priority,
				Status:   models.RowLoading,
			},
		}
	}
	return l
}

// Load runs one page load. It returns after the high-priority tier has
// finished; lower tiers continue in the background until the page is
// settled (see Wait). A new Load aborts the pending tiers of the previous one.
func (l *Loader) Load(ctx context.Context) error {
	cyc, err := l.beginCycle()
	if err != nil {
		return err
	}
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}

	background := false
	defer func() {
		if !background {
			l.settle(cyc)
		}
	}()

	high, low := l.partition()
	logging.Ctx(ctx).Debug().
		Int("high_priority", len(high)).
		Int("low_priority", len(low)).
		Msg("Page load started")

	l.setPhase(cyc, models.PhasePreloading)
	l.preload(ctx)

	l.setPhase(cyc, models.PhaseLoadingHighPriority)
	hctx, stop := mergeCancel(ctx, cyc.ctx)
	l.runTier(hctx, high, tierHigh, l.cfg.StaggerDelay, cyc)
	stop()

	if err := ctx.Err(); err != nil {
		l.abandon(l.rows)
		return err
	}
	if len(low) == 0 || cyc.ctx.Err() != nil {
		return nil
	}

	l.setPhase(cyc, models.PhaseLoadingLowPriority)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	background = true
	lctx, lstop := mergeCancel(context.WithoutCancel(ctx), cyc.ctx)
	l.wg.Go(func() {
		defer l.settle(cyc)
		defer lstop()
		l.runLowTiers(lctx, low, cyc)
	})
	return nil
}

// Wait blocks until the current page load is settled. It returns
// immediately if Load was never called.
func (l *Loader) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		cyc := l.cycle
		l.mu.Unlock()
		if cyc == nil {
			return nil
		}

		select {
		case <-cyc.done:
		case <-ctx.Done():
			return ctx.Err()
		}

		l.mu.Lock()
		same := l.cycle == cyc
		l.mu.Unlock()
		if same {
			return nil
		}
	}
}

// Retry reloads a single row from the network, superseding any request
// already running for it. It returns the row's load error.
func (l *Loader) Retry(ctx context.Context, rowID string) error {
	row, ok := l.rowConfig(rowID)
	if !ok {
		return ErrUnknownRow
	}
	if l.isClosed() {
		return ErrClosed
	}
	rctx, stop := mergeCancel(ctx, l.ctx)
	defer stop()
	return l.loadRow(rctx, row, tierRetry, nil, true)
}

// Suspend aborts pending tiers and every running row request. Rows that
// were still loading become retryable errors. Resume starts them again.
func (l *Loader) Suspend() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	cyc := l.cycle
	l.mu.Unlock()

	if cyc != nil {
		cyc.cancel()
	}
	busy := l.slots.Busy()
	l.slots.CancelAll()

	l.abandon(l.rows)

	l.mu.Lock()
	marked := make(map[string]bool, len(l.suspended))
	for _, id := range l.suspended {
		marked[id] = true
	}
	for _, id := range busy {
		if !marked[id] {
			marked[id] = true
			l.suspended = append(l.suspended, id)
		}
	}
	for _, row := range l.rows {
		if l.states[row.ID].canceled && !marked[row.ID] {
			marked[row.ID] = true
			l.suspended = append(l.suspended, row.ID)
		}
	}
	n := len(l.suspended)
	l.mu.Unlock()

	logging.Debug().Int("rows", n).Msg("Loader suspended")
}

// Resume reloads the rows aborted by Suspend and waits for them.
func (l *Loader) Resume(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	ids := l.suspended
	l.suspended = nil
	l.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	logging.Debug().Int("rows", len(ids)).Msg("Loader resumed")

	rctx, stop := mergeCancel(ctx, l.ctx)
	defer stop()
	p := pool.New().WithContext(rctx)
	for _, id := range ids {
		row, ok := l.rowConfig(id)
		if !ok {
			continue
		}
		p.Go(func(ctx context.Context) error {
			_ = l.loadRow(ctx, row, tierResume, nil, true)
			return nil
		})
	}
	return p.Wait()
}

// Close aborts every request, waits for background tiers and runs all
// disposers in reverse registration order. Close is idempotent.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.slots.CancelAll()
	l.wg.Wait()

	l.mu.Lock()
	disposers := l.disposers
	l.disposers = nil
	l.listeners = nil
	l.mu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		disposers[i]()
	}
}

// Subscribe registers fn for loader events and returns its disposer. fn is
// called outside the loader's locks but must not block or call back into
// the Loader synchronously.
func (l *Loader) Subscribe(fn func(Event)) (dispose func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return func() {}
	}
	l.nextListener++
	id := l.nextListener
	l.listeners = append(l.listeners, listener{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.listeners = slices.DeleteFunc(l.listeners, func(ln listener) bool {
				return ln.id == id
			})
		})
	}
}

// OnClose registers fn to run on Close. After Close, fn runs immediately.
func (l *Loader) OnClose(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		fn()
		return
	}
	l.disposers = append(l.disposers, fn)
	l.mu.Unlock()
}

// Phase returns the current page phase.
func (l *Loader) Phase() models.LoaderPhase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Rows returns a snapshot of every row in priority order. Item slices are
// shared and must not be modified.
func (l *Loader) Rows() []models.RowState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.RowState, 0, len(l.rows))
	for _, row := range l.rows {
		out = append(out, l.states[row.ID].state)
	}
	return out
}

// Row returns a snapshot of one row.
func (l *Loader) Row(id string) (models.RowState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.states[id]
	if !ok {
		return models.RowState{}, false
	}
	return e.state, true
}

func (l *Loader) beginCycle() (*cycle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	if l.cycle != nil {
		l.cycle.cancel()
	}
	ctx, cancel := context.WithCancel(l.ctx)
	cyc := &cycle{ctx: ctx, cancel: cancel, start: time.Now(), done: make(chan struct{})}
	l.cycle = cyc
	l.suspended = nil
	return cyc, nil
}

func (l *Loader) settle(cyc *cycle) {
	cyc.once.Do(func() {
		cyc.cancel()

		l.mu.Lock()
		current := l.cycle == cyc
		if current {
			l.phase = models.PhaseSettled
		}
		l.mu.Unlock()
		close(cyc.done)

		if current {
			d := time.Since(cyc.start)
			metrics.PageSettleDuration.Observe(d.Seconds())
			logging.Debug().Dur("duration", d).Msg("Page settled")
			l.emit(Event{Phase: models.PhaseSettled})
		}
	})
}

func (l *Loader) setPhase(cyc *cycle, phase models.LoaderPhase) {
	l.mu.Lock()
	if l.cycle != cyc {
		l.mu.Unlock()
		return
	}
	l.phase = phase
	l.mu.Unlock()
	l.emit(Event{Phase: phase})
}

func (l *Loader) partition() (high, low []models.RowConfig) {
	for _, row := range l.rows {
		if row.Priority <= l.cfg.HighPriorityCutoff {
			high = append(high, row)
		} else {
			low = append(low, row)
		}
	}
	return high, low
}

// preload renders cached entries immediately and marks every other row as
// loading.
func (l *Loader) preload(ctx context.Context) {
	type cached struct {
		entry cache.Entry
		stale bool
	}
	found := make(map[string]cached)
	for _, row := range l.rows {
		if !row.Cached {
			continue
		}
		entry, ok, stale := l.cache.Lookup(ctx, l.cacheKey(row), l.freshness(row))
		if ok {
			found[row.ID] = cached{entry: entry, stale: stale}
		}
	}

	now := l.now()
	var events []Event
	l.mu.Lock()
	for _, row := range l.rows {
		e := l.states[row.ID]
		if c, ok := found[row.ID]; ok {
			e.state.Status = models.RowLoaded
			e.state.Items = content.Apply(c.entry.Items, row.Sort, row.Limit, now, l.cfg.LanguagePriority)
			e.state.FromCache = true
			e.state.Stale = c.stale
			e.state.UpdatedAt = c.entry.Timestamp
		} else {
			e.state.Status = models.RowLoading
			e.state.FromCache = false
			e.state.Stale = false
		}
		e.state.Error = ""
		e.state.Retryable = false
		e.canceled = false
		events = append(events, l.rowEventLocked(e))
	}
	l.mu.Unlock()

	for _, ev := range events {
		l.emit(ev)
	}
	if len(found) > 0 {
		logging.Ctx(ctx).Debug().Int("rows", len(found)).Msg("Rendered cached rows")
	}
}

// abandon turns rows that are still loading into retryable cancellation
// errors.
func (l *Loader) abandon(rows []models.RowConfig) {
	var events []Event
	l.mu.Lock()
	for _, row := range rows {
		e := l.states[row.ID]
		if e.state.Status != models.RowLoading {
			continue
		}
		e.state.Status = models.RowError
		e.state.Error = client.UserMessage(client.ErrCanceled)
		e.state.Retryable = true
		e.state.UpdatedAt = l.now()
		e.canceled = true
		events = append(events, l.rowEventLocked(e))
	}
	l.mu.Unlock()

	for _, ev := range events {
		l.emit(ev)
	}
}

// runTier starts rows concurrently, row i after i x stagger, and waits for
// all of them. Row failures stay on the row.
func (l *Loader) runTier(ctx context.Context, rows []models.RowConfig, tier string, stagger time.Duration, cyc *cycle) {
	p := pool.New().WithContext(ctx)
	for i, row := range rows {
		row := row
		delay := time.Duration(i) * stagger
		p.Go(func(ctx context.Context) error {
			if err := sleep(ctx, delay); err != nil {
				return nil
			}
			_ = l.loadRow(ctx, row, tier, cyc, false)
			return nil
		})
	}
	_ = p.Wait()
}

// runLowTiers groups rows by priority; tier k starts (k+1) x LowPriorityDelay
// after the call.
func (l *Loader) runLowTiers(ctx context.Context, rows []models.RowConfig, cyc *cycle) {
	var tiers [][]models.RowConfig
	for i, row := range rows {
		if i == 0 || row.Priority != rows[i-1].Priority {
			tiers = append(tiers, nil)
		}
		tiers[len(tiers)-1] = append(tiers[len(tiers)-1], row)
	}

	var wg conc.WaitGroup
	for k, tier := range tiers {
		tier := tier
		delay := time.Duration(k+1) * l.cfg.LowPriorityDelay
		wg.Go(func() {
			if err := sleep(ctx, delay); err != nil {
				return
			}
			l.runTier(ctx, tier, tierLow, 0, cyc)
		})
	}
	wg.Wait()
}

// loadRow loads one row. A fresh cache entry is used without a network call
// unless force is set. cyc is nil outside a page load.
func (l *Loader) loadRow(ctx context.Context, row models.RowConfig, tier string, cyc *cycle, force bool) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}

	rctx, ticket := l.slots.Get(row.ID).Begin(ctx)
	defer ticket.Done()

	var (
		key    string
		entry  cache.Entry
		cached bool
	)
	if row.Cached {
		key = l.cacheKey(row)
		entry, cached = l.cache.GetContext(rctx, key)
		if cached && !force && !entry.StaleAt(l.now(), l.freshness(row)) {
			now := l.now()
			l.commit(ticket, row.ID, func(e *rowEntry) bool {
				st := &e.state
				st.Status = models.RowLoaded
				st.Items = content.Apply(entry.Items, row.Sort, row.Limit, now, l.cfg.LanguagePriority)
				st.FromCache = true
				st.Stale = false
				st.Error = ""
				st.Retryable = false
				st.UpdatedAt = entry.Timestamp
				e.canceled = false
				return true
			})
			metrics.RecordRowLoad(tier, "cached", 0)
			return nil
		}
	}

	// A stale entry stays on screen while it is refreshed.
	if !cached {
		l.commit(ticket, row.ID, func(e *rowEntry) bool {
			if rctx.Err() != nil {
				return false
			}
			e.state.Status = models.RowLoading
			e.state.Error = ""
			e.state.Retryable = false
			e.canceled = false
			return true
		})
	}

	items, err := l.fetcher.Fetch(rctx, row.Endpoint, row.Params, row.Timeout)
	if err != nil {
		committed := l.commit(ticket, row.ID, func(e *rowEntry) bool {
			// Aborted because a newer page load took over; that load owns the row.
			if cyc != nil && l.cycle != cyc && rctx.Err() != nil {
				return false
			}
			st := &e.state
			if cached {
				st.Status = models.RowLoaded
				st.Stale = true
			} else {
				st.Status = models.RowError
				st.Items = nil
				st.FromCache = false
			}
			st.Error = client.UserMessage(err)
			st.Retryable = client.IsRetryable(err)
			st.UpdatedAt = l.now()
			e.canceled = errors.Is(err, client.ErrCanceled) || errors.Is(err, context.Canceled)
			return true
		})
		result := "error"
		if !committed {
			result = "superseded"
		}
		metrics.RecordRowLoad(tier, result, time.Since(start))
		if committed && rctx.Err() == nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("row", row.ID).
				Str("endpoint", row.Endpoint).
				Bool("stale_kept", cached).
				Msg("Row load failed")
		}
		return err
	}

	kept, stats := content.DedupeWithStats(items)
	metrics.RecordDedupe(stats.Duplicates, stats.MissingID)
	if row.Cached && ticket.Current() {
		l.cache.PutContext(rctx, key, kept)
	}

	now := l.now()
	shown := content.Apply(kept, row.Sort, row.Limit, now, l.cfg.LanguagePriority)
	committed := l.commit(ticket, row.ID, func(e *rowEntry) bool {
		st := &e.state
		st.Status = models.RowLoaded
		st.Items = shown
		st.FromCache = false
		st.Stale = false
		st.Error = ""
		st.Retryable = false
		st.UpdatedAt = now
		e.canceled = false
		return true
	})
	if !committed {
		metrics.RecordRowLoad(tier, "superseded", time.Since(start))
		return inflight.ErrSuperseded
	}
	metrics.RecordRowLoad(tier, "loaded", time.Since(start))
	logging.Ctx(ctx).Debug().
		Str("row", row.ID).
		Int("items", len(shown)).
		Int("duplicates", stats.Duplicates).
		Dur("duration", time.Since(start)).
		Msg("Row loaded")
	return nil
}

// commit applies mutate to the row state if ticket is still current and
// emits the result. mutate runs under the loader lock and may veto the
// update by returning false.
func (l *Loader) commit(ticket inflight.Ticket, id string, mutate func(e *rowEntry) bool) bool {
	var (
		ev      Event
		changed bool
	)
	ok := ticket.Commit(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		e := l.states[id]
		if !mutate(e) {
			return
		}
		ev = l.rowEventLocked(e)
		changed = true
	})
	if changed {
		l.emit(ev)
	}
	return ok && changed
}

// rowEventLocked stamps e with the next sequence number. l.mu must be held.
func (l *Loader) rowEventLocked(e *rowEntry) Event {
	l.seq++
	e.seq = l.seq
	st := e.state
	return Event{Phase: l.phase, Row: &st, seq: e.seq}
}

func (l *Loader) emit(ev Event) {
	l.emitMu.Lock()
	defer l.emitMu.Unlock()

	if ev.Row != nil {
		if ev.seq <= l.delivered[ev.Row.ID] {
			return
		}
		l.delivered[ev.Row.ID] = ev.seq
	}

	l.mu.Lock()
	fns := make([]func(Event), len(l.listeners))
	for i, ln := range l.listeners {
		fns[i] = ln.fn
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (l *Loader) rowConfig(id string) (models.RowConfig, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.states[id]
	if !ok {
		return models.RowConfig{}, false
	}
	return e.cfg, true
}

func (l *Loader) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loader) cacheKey(row models.RowConfig) string {
	return cache.Key(row.Endpoint, row.Params, l.fetcher.Authenticated())
}

func (l *Loader) freshness(row models.RowConfig) time.Duration {
	if row.Freshness > 0 {
		return row.Freshness
	}
	return l.cfg.FreshnessWindow
}

// mergeCancel returns a child of parent that is also canceled when other is.
func mergeCancel(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
