package gammaimg

import "sync"

// binLocks guards concurrent accumulation into a dense buffer; bins share
// NumShards mutexes by their low bits.
type binLocks struct{ mu [NumShards]sync.Mutex }

// addSparse adds every entry of s into dense, holding the bin's shard lock.
func (l *binLocks) addSparse(dense []Real, s *Sparse) {
	for k, b := range s.Bins {
		m := &l.mu[b&(NumShards-1)]
		m.Lock()
		dense[b] += s.Values[k]
		m.Unlock()
	}
}
