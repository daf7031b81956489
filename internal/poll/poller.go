// Package poll implements the reconciliation loop: on a fixed period the
// authoritative state is fetched and replaces the replica wholesale. The loop
// is the system's consistency backstop; its staleness bound is one interval.
package poll

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Poller periodically runs fetch and, if the result is still current, apply.
// Fetch and apply are split so a result that lost the race against a newer
// poll (or against teardown) is discarded instead of applied.
type Poller struct {
	interval time.Duration
	fetch    func(context.Context) (any, error)
	apply    func(any)

	seq      atomic.Uint64
	inflight atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(interval time.Duration, fetch func(context.Context) (any, error), apply func(any)) *Poller {
	return &Poller{
		interval: interval,
		fetch:    fetch,
		apply:    apply,
		done:     make(chan struct{}),
	}
}

// Start polls once immediately, then on every interval tick until Stop or
// context cancellation. The ticker never outlives the loop.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.poll(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.done:
				return
			case <-ticker.C:
				p.poll(ctx)
			}
		}
	}()
}

// Stop tears the loop down and waits for any outstanding poll goroutine. A
// fetch completing after Stop never applies.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

// Invalidate discards the in-flight poll's result, if any. Callers use it
// when the fetch parameters changed under the loop, e.g. on identity change.
func (p *Poller) Invalidate() {
	p.seq.Add(1)
}

// Kick invalidates and requests an immediate out-of-band poll. If a poll is
// already outstanding its result is discarded and the next tick refreshes.
func (p *Poller) Kick(ctx context.Context) {
	p.Invalidate()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.poll(ctx)
	}()
}

func (p *Poller) poll(ctx context.Context) {
	// A poll started while another is outstanding is skipped, not queued.
	if !p.inflight.CompareAndSwap(false, true) {
		return
	}
	defer p.inflight.Store(false)

	seq := p.seq.Add(1)
	result, err := p.fetch(ctx)
	if err != nil {
		// The previous replica state keeps being displayed until the next
		// successful poll.
		log.Printf("poll: refresh failed: %v", err)
		return
	}
	if seq != p.seq.Load() {
		return
	}
	select {
	case <-p.done:
		return
	default:
	}
	if ctx.Err() != nil {
		return
	}
	p.apply(result)
}
