// Package refresh drives the polling loop that keeps a session snapshot
// current. The store has no change feed, so the loop polls on a fixed
// interval and hashes a projection of the result set to skip redundant
// rebuilds.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tachikoma-agent/dashboard/src/config"
	"github.com/tachikoma-agent/dashboard/src/model"
	"github.com/tachikoma-agent/dashboard/src/queries"
)

const (
	minQueryTimeout = time.Second
	maxQueryTimeout = 5 * time.Second
)

// Controller owns the refresh state machine: the last known content hash,
// the current snapshot, and the selected session id. One goroutine runs all
// periodic ticks, so ticks are strictly serialized; an interval firing while
// the previous tick still runs is simply absorbed by the ticker.
type Controller struct {
	svc  *queries.Service
	log  *slog.Logger
	emit func(Snapshot)

	interval     time.Duration
	queryTimeout time.Duration
	cwd          string

	mu         sync.Mutex
	lastHash   string
	selectedID string
	current    Snapshot

	runCtx  context.Context
	cancel  context.CancelFunc
	forceCh chan struct{}
	wg      sync.WaitGroup
}

// NewController creates a controller polling through svc. emit receives each
// new snapshot from the loop goroutine; pass nil to only read snapshots via
// Snapshot.
func NewController(svc *queries.Service, cfg config.Config, emit func(Snapshot), logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := 2 * cfg.Interval()
	if timeout < minQueryTimeout {
		timeout = minQueryTimeout
	}
	if timeout > maxQueryTimeout {
		timeout = maxQueryTimeout
	}

	return &Controller{
		svc:          svc,
		log:          logger,
		emit:         emit,
		interval:     cfg.Interval(),
		queryTimeout: timeout,
		cwd:          cfg.Cwd,
		forceCh:      make(chan struct{}, 1),
	}
}

// Start launches the polling loop. The first tick runs immediately.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run()
}

// Stop cancels the loop and waits for any in-flight tick. No snapshot is
// emitted after Stop returns.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
}

// Snapshot returns the most recent snapshot.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Refresh forces an out-of-band tick that bypasses the session cache. Safe
// to call from any goroutine; coalesces with a pending forced tick.
func (c *Controller) Refresh() {
	c.svc.InvalidateSessions(c.cwd)
	c.svc.InvalidateModelUsage()
	select {
	case c.forceCh <- struct{}{}:
	default:
	}
}

// Select re-targets the selection and reloads the selected session's detail
// data immediately, independent of the periodic tick. The detail queries may
// run concurrently with a tick; the caches serialize themselves and snapshot
// state stays behind the controller mutex.
func (c *Controller) Select(sessionID string) {
	c.mu.Lock()
	c.selectedID = sessionID
	ctx := c.runCtx
	c.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}

	tctx, cancelTimeout := context.WithTimeout(ctx, c.queryTimeout)
	defer cancelTimeout()

	detail := Snapshot{SelectedID: sessionID}
	c.loadSelectionDetails(tctx, &detail)

	c.mu.Lock()
	// Only publish if the caller's choice still stands; the selection may
	// have moved again while the detail queries ran.
	if c.selectedID != sessionID {
		c.mu.Unlock()
		return
	}
	// Merge the detail fields into whatever snapshot is current now. A tick
	// may have rebuilt the tree in the meantime; taking c.current here keeps
	// that newer tree instead of republishing the one Select started from.
	snap := c.current
	snap.SelectedID = sessionID
	snap.SelectedStats = detail.SelectedStats
	snap.SelectedTodos = detail.SelectedTodos
	snap.SelectedSkills = detail.SelectedSkills
	snap.SelectedTokens = detail.SelectedTokens
	c.current = snap
	c.mu.Unlock()

	c.emitSnapshot(ctx, snap)
}

func (c *Controller) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.tickSafe()
	for {
		select {
		case <-c.runCtx.Done():
			return
		case <-c.forceCh:
			c.tickSafe()
		case <-ticker.C:
			c.tickSafe()
		}
	}
}

// tickSafe keeps the loop alive no matter what a tick does: a single bad
// tick is logged and the next interval proceeds.
func (c *Controller) tickSafe() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("refresh tick panicked", "panic", r)
		}
	}()

	if c.runCtx.Err() != nil {
		return
	}
	c.tick()
}

func (c *Controller) tick() {
	ctx, cancel := context.WithTimeout(c.runCtx, c.queryTimeout)
	defer cancel()

	sessions, err := c.svc.Sessions(ctx, c.cwd)
	if err != nil {
		// Transient store trouble reads as zero sessions; keep polling.
		c.log.Warn("session query failed", "error", err)
		sessions = nil
	}

	hash := SessionsHash(sessions)

	c.mu.Lock()
	if hash == c.lastHash && c.lastHash != "" {
		c.mu.Unlock()
		return
	}
	selectedBefore := c.selectedID
	c.mu.Unlock()
	selected := selectedBefore

	tree := model.BuildSessionTree(sessions)

	// Selection survives rebuilds by id, not by index. Fall back to the
	// first root when the selected session left the result set.
	if selected != "" && model.FindInForest(tree, selected) == nil {
		selected = ""
	}
	if selected == "" && len(tree) > 0 {
		selected = tree[0].Session.ID
	}

	snap := Snapshot{
		Sessions:       sessions,
		Tree:           tree,
		SelectedID:     selected,
		StoreAvailable: c.svc.Store().Available(),
	}
	c.loadSelectionDetails(ctx, &snap)

	modelUsage, err := c.svc.AllModelUsage(ctx)
	if err != nil {
		c.log.Warn("model usage query failed", "error", err)
	}
	snap.ModelUsage = modelUsage

	c.mu.Lock()
	c.lastHash = hash
	// A Select that landed while this tick ran must not be overwritten with
	// the pre-tick value. When its session survived the rebuild, the newer
	// choice wins; its detail fields carry over only if Select already
	// published them for that id.
	if c.selectedID != selectedBefore && model.FindInForest(tree, c.selectedID) != nil {
		snap.SelectedID = c.selectedID
		if c.current.SelectedID == c.selectedID {
			snap.SelectedStats = c.current.SelectedStats
			snap.SelectedTodos = c.current.SelectedTodos
			snap.SelectedSkills = c.current.SelectedSkills
			snap.SelectedTokens = c.current.SelectedTokens
		} else {
			snap.SelectedStats = nil
			snap.SelectedTodos = nil
			snap.SelectedSkills = nil
			snap.SelectedTokens = nil
		}
	}
	c.selectedID = snap.SelectedID
	c.current = snap
	c.mu.Unlock()

	c.emitSnapshot(c.runCtx, snap)
}

func (c *Controller) loadSelectionDetails(ctx context.Context, snap *Snapshot) {
	if snap.SelectedID == "" {
		return
	}

	stats, err := c.svc.SessionStats(ctx, snap.SelectedID)
	if err != nil {
		c.log.Warn("session stats query failed", "session_id", snap.SelectedID, "error", err)
	} else {
		snap.SelectedStats = &stats
	}

	todos, err := c.svc.Todos(ctx, snap.SelectedID)
	if err != nil {
		c.log.Warn("todo query failed", "session_id", snap.SelectedID, "error", err)
	} else {
		snap.SelectedTodos = todos
	}

	skills, err := c.svc.SessionSkills(ctx, snap.SelectedID)
	if err != nil {
		c.log.Warn("skill query failed", "session_id", snap.SelectedID, "error", err)
	} else {
		snap.SelectedSkills = skills
	}

	tokens, err := c.svc.SessionTokens(ctx, snap.SelectedID)
	if err != nil {
		c.log.Warn("session token query failed", "session_id", snap.SelectedID, "error", err)
	} else {
		snap.SelectedTokens = &tokens
	}
}

func (c *Controller) emitSnapshot(ctx context.Context, snap Snapshot) {
	if c.emit == nil || ctx.Err() != nil {
		return
	}
	c.emit(snap)
}
