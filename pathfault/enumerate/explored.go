package enumerate

import "github.com/projectdiscovery/gcache"

// Explorer tracks which ChainChoice hashes have already been produced
// during random enumeration, backed by an ARC cache. Capacity is sized
// to the exhaustive count so nothing is evicted before the random walk
// can terminate.
type Explorer struct {
	seen  gcache.Cache[string, struct{}]
	count int
}

// NewExplorer returns an Explorer capped at capacity entries.
func NewExplorer(capacity int) *Explorer {
	if capacity < 1 {
		capacity = 1
	}
	return &Explorer{
		seen: gcache.New[string, struct{}](capacity).ARC().Build(),
	}
}

// TryMark records hash as explored and reports true if it was new.
func (x *Explorer) TryMark(hash string) bool {
	if _, err := x.seen.GetIFPresent(hash); err == nil {
		return false
	}
	_ = x.seen.Set(hash, struct{}{})
	x.count++
	return true
}

// Count returns how many distinct hashes have been marked.
func (x *Explorer) Count() int {
	return x.count
}

// Purge discards every tracked hash.
func (x *Explorer) Purge() {
	x.seen.Purge()
	x.count = 0
}
