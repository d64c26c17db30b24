package bcache

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is the default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit(Path)    {}
func (NoopMetrics) Miss()       {}
func (NoopMetrics) Evict()      {}
func (NoopMetrics) Transfer(Op) {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}

// Stats is a point-in-time snapshot of the cache's counters.
type Stats struct {
	Slots       int
	Buckets     int
	FastHits    uint64
	ArbiterHits uint64
	Misses      uint64
	Evictions   uint64
	Reads       uint64
	Writes      uint64
}

// Hits returns the total number of lookups served from the cache.
func (s Stats) Hits() uint64 { return s.FastHits + s.ArbiterHits }
