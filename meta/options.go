package meta

import "sync"

// Options tune process-wide runtime behaviour.
type Options struct {
	// SignatureCacheSize bounds the normalized-signature cache.
	// Zero or negative disables caching.
	SignatureCacheSize int

	// BlockingSameThreadIsError makes a blocking-queued call on the
	// receiver's own thread fail with ErrDeadlockRisk instead of only
	// logging it.
	BlockingSameThreadIsError bool
}

// DefaultOptions returns the options in effect at startup.
func DefaultOptions() Options {
	return Options{SignatureCacheSize: 1024}
}

var (
	optionsMu sync.RWMutex
	options   = DefaultOptions()
)

// SetOptions replaces the process-wide options.
func SetOptions(o Options) {
	optionsMu.Lock()
	options = o
	optionsMu.Unlock()
	resetSignatureCache(o.SignatureCacheSize)
}

// CurrentOptions returns the process-wide options.
func CurrentOptions() Options {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options
}
