package inventory

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"
)

// DefaultRefreshInterval bounds both the cost of window-list queries and
// the staleness of hit-test results.
const DefaultRefreshInterval = 100 * time.Millisecond

// Cache answers "inventory as of now" by refreshing at most once per
// interval. A failed platform query yields an empty snapshot for that
// cycle and is retried on the next one.
type Cache struct {
	mu       sync.Mutex
	lister   Lister
	opts     Options
	interval time.Duration
	log      zerolog.Logger

	now          func() time.Time
	resolveOwner func(pid int) string

	lastRefresh time.Time
	snapshot    []WindowInfo
}

// NewCache creates a cache over the given platform lister.
func NewCache(lister Lister, opts Options, interval time.Duration, log zerolog.Logger) *Cache {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Cache{
		lister:       lister,
		opts:         opts,
		interval:     interval,
		log:          log,
		now:          time.Now,
		resolveOwner: ownerName,
	}
}

// Snapshot returns the current inventory, refreshing first if the cached
// one is older than the refresh interval. The returned slice must not be
// mutated by callers.
func (c *Cache) Snapshot() []WindowInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.lastRefresh.IsZero() && now.Sub(c.lastRefresh) < c.interval {
		return c.snapshot
	}
	c.refreshLocked(now)
	return c.snapshot
}

// Reconfigure swaps the filter options and refresh interval, and marks
// the current snapshot stale so the new options apply on the next query.
func (c *Cache) Reconfigure(opts Options, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	c.opts = opts
	c.interval = interval
	c.lastRefresh = time.Time{}
}

// Invalidate forces the next Snapshot call to query the platform again.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRefresh = time.Time{}
}

// Size returns the number of windows in the current snapshot without
// triggering a refresh.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshot)
}

func (c *Cache) refreshLocked(now time.Time) {
	c.lastRefresh = now

	raw, err := c.lister.ListWindows()
	if err != nil {
		// Non-fatal: hit testing falls back to the slower point query
		// until the next scheduled refresh succeeds.
		c.log.Warn().Err(err).Msg("window list query failed, using empty inventory")
		c.snapshot = nil
		return
	}

	names := make(map[int]string, len(raw))
	for i := range raw {
		if raw[i].OwnerName != "" {
			continue
		}
		pid := raw[i].OwnerPID
		if pid <= 0 {
			continue
		}
		name, ok := names[pid]
		if !ok {
			name = c.resolveOwner(pid)
			names[pid] = name
		}
		raw[i].OwnerName = name
	}

	c.snapshot = Filter(raw, c.opts)
}

// ownerName resolves a process name from its pid, best-effort.
func ownerName(pid int) string {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		return ""
	}
	return name
}
