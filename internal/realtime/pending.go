package realtime

import (
	"encoding/json"
	"sync"
)

// reply is the outcome of one outbound request: either the first ack argument
// or a failure reason.
type reply struct {
	data json.RawMessage
	err  error
}

// pendingSet correlates outbound requests with their acks by id. Each waiter
// receives exactly one reply.
type pendingSet struct {
	mu      sync.Mutex
	waiters map[uint64]chan reply
}

func newPendingSet() *pendingSet {
	return &pendingSet{waiters: make(map[uint64]chan reply)}
}

func (p *pendingSet) register(id uint64) <-chan reply {
	ch := make(chan reply, 1)
	p.mu.Lock()
	p.waiters[id] = ch
	p.mu.Unlock()
	return ch
}

// resolve delivers an ack. It returns false for ids nobody waits on, such as
// acks that arrive after a timeout.
func (p *pendingSet) resolve(id uint64, r reply) bool {
	p.mu.Lock()
	ch, ok := p.waiters[id]
	delete(p.waiters, id)
	p.mu.Unlock()
	if ok {
		ch <- r
	}
	return ok
}

func (p *pendingSet) forget(id uint64) {
	p.mu.Lock()
	delete(p.waiters, id)
	p.mu.Unlock()
}

// failAll resolves every waiter with err and empties the set.
func (p *pendingSet) failAll(err error) int {
	p.mu.Lock()
	waiters := p.waiters
	p.waiters = make(map[uint64]chan reply)
	p.mu.Unlock()
	for _, ch := range waiters {
		ch <- reply{err: err}
	}
	return len(waiters)
}

func (p *pendingSet) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}
