package gammaimg

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

type binnerKey struct {
	n     int
	shift Real
}

var (
	binnerCacheOnce sync.Once
	binnerCache     *lru.Cache[binnerKey, *FISBEL]
)

// CachedFISBEL returns a shared binning for (n, shift), building it on first use.
// Construction is deterministic, so cached and fresh binnings compare Equal.
func CachedFISBEL(n int, shift Real) (*FISBEL, error) {
	binnerCacheOnce.Do(func() {
		c, err := lru.New[binnerKey, *FISBEL](BinnerCacheSize)
		if err != nil {
			panic(fmt.Sprintf("binner cache: %v", err))
		}
		binnerCache = c
	})
	key := binnerKey{n: n, shift: shift}
	if f, ok := binnerCache.Get(key); ok {
		return f, nil
	}
	f, err := NewFISBEL(n, shift)
	if err != nil {
		return nil, err
	}
	binnerCache.Add(key, f)
	return f, nil
}
