package gammaimg

import (
	"sort"
	"sync"
)

type Category uint8

const (
	Accepted  Category = iota // event contributed to the image
	NaN                       // discarded: non-finite content
	Empty                     // discarded: bins written but zero sum
	Invalid                   // discarded: malformed event
	Cancelled                 // not processed, the run was cancelled
)

func (c Category) String() string {
	switch c {
	case Accepted:
		return "accepted"
	case NaN:
		return "nan"
	case Empty:
		return "empty"
	case Invalid:
		return "invalid"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

type EventLog struct {
	Index    int
	Category Category
	Bins     int  // number of sparse entries written
	Maximum  Real // largest entry
}

type EventLogCache struct {
	mu     sync.Mutex
	events map[Category][]EventLog
}

var cache = &EventLogCache{
	events: make(map[Category][]EventLog),
}

func logEvent(index int, category Category, bins int, maximum Real) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.events[category] = append(cache.events[category], EventLog{
		Index:    index,
		Category: category,
		Bins:     bins,
		Maximum:  maximum,
	})
}

func eventStats() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cats := make([]Category, 0, len(cache.events))
	for k := range cache.events {
		cats = append(cats, k)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	for _, k := range cats {
		Logger().Debug("event outcome", "category", k.String(), "count", len(cache.events[k]))
	}
}
