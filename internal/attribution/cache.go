package attribution

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/lox/rallysim/internal/team"
)

// modelCache holds finished attribution reports keyed by a content hash of
// the attribution request, opt-in per Config.CacheModels. Persistence is out
// of scope for the core, so this is process-local only.
type modelCache struct {
	mu      sync.Mutex
	entries map[uint64]*AttributionReport
}

var globalCache = &modelCache{entries: make(map[uint64]*AttributionReport)}

// cacheKey hashes everything that determines the fitted model and report:
// both teams' feature values and the config's effective settings. The
// conditional model is not hashed; Attribute always uses the default one.
func cacheKey(a, b team.Stats, cfg Config) uint64 {
	h := fnv.New64a()
	write := func(v float64) { fmt.Fprintf(h, "%x|", v) }
	for _, f := range team.Features() {
		write(f.Get(a))
	}
	for _, f := range team.Features() {
		write(f.Get(b))
	}
	fmt.Fprintf(h, "R=%d|M=%d|delta=%x|model=%s|holdout=%x|seed=%d|shift=%x|",
		cfg.r(), cfg.m(), cfg.delta(), cfg.Model, cfg.holdoutFraction(), cfg.masterSeed(), cfg.shiftDelta())
	return h.Sum64()
}

func (c *modelCache) get(key uint64) (*AttributionReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *modelCache) put(key uint64, report *AttributionReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = report
}
