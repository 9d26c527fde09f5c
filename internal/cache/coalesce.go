package cache

import (
	"encoding/json"
	"sync"
	"time"
)

const DefaultMaxFlights = 10000

// Flight is one in-progress fill for a cache key. Followers block on done and
// then read the published result.
type Flight struct {
	done  chan struct{}
	value json.RawMessage
	err   error
}

// Coalescer collapses concurrent misses on the same key into a single
// upstream flight. The flight map is bounded; when full, callers proceed
// uncoalesced.
type Coalescer struct {
	mu         sync.Mutex
	flights    map[string]*Flight
	maxFlights int
}

func NewCoalescer(maxFlights int) *Coalescer {
	if maxFlights <= 0 {
		maxFlights = DefaultMaxFlights
	}
	return &Coalescer{flights: make(map[string]*Flight), maxFlights: maxFlights}
}

// Start returns the flight for key. leader is true when the caller registered
// a new flight and owns producing its result. ok is false when coalescing is
// unavailable (empty key or flight map full) and the caller should fetch
// independently.
func (c *Coalescer) Start(key string) (flight *Flight, leader bool, ok bool) {
	if c == nil || key == "" {
		return nil, false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, exists := c.flights[key]; exists {
		return existing, false, true
	}
	if len(c.flights) >= c.maxFlights {
		return nil, false, false
	}
	flight = &Flight{done: make(chan struct{})}
	c.flights[key] = flight
	return flight, true, true
}

// Finish publishes the leader's result and releases all followers.
func (c *Coalescer) Finish(key string, flight *Flight, value json.RawMessage, err error) {
	if c == nil || flight == nil {
		return
	}
	c.mu.Lock()
	if current, exists := c.flights[key]; exists && current == flight {
		delete(c.flights, key)
	}
	c.mu.Unlock()
	flight.value = value
	flight.err = err
	close(flight.done)
}

// Wait blocks for the flight result up to timeout. joined is false on
// breakaway; the caller then fetches independently.
func (c *Coalescer) Wait(flight *Flight, timeout time.Duration) (value json.RawMessage, err error, joined bool) {
	if flight == nil || timeout <= 0 {
		return nil, nil, false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-flight.done:
		return flight.value, flight.err, true
	case <-timer.C:
		return nil, nil, false
	}
}
