package application

import (
	"sync"
	"time"
)

const DefaultReconnectDelay = 2 * time.Second

// ReconnectPolicy schedules retries after unexpected closes with a fixed
// delay and no attempt cap.
type ReconnectPolicy struct {
	delay time.Duration

	mu      sync.Mutex
	attempt int
	timer   *time.Timer
	seq     uint64
}

func NewReconnectPolicy(delay time.Duration) *ReconnectPolicy {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &ReconnectPolicy{delay: delay}
}

// Attempt is the number of unexpected closes since the last live entry.
func (p *ReconnectPolicy) Attempt() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt
}

func (p *ReconnectPolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempt = 0
}

// OnClose records a close and, when a connection is still wanted, arms
// retry after the delay. User-initiated closes never schedule anything.
func (p *ReconnectPolicy) OnClose(userInitiated, wanted bool, retry func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	if userInitiated {
		return false
	}

	p.attempt++
	if !wanted || retry == nil {
		return false
	}

	seq := p.seq
	p.timer = time.AfterFunc(p.delay, func() {
		p.mu.Lock()
		if p.seq != seq {
			p.mu.Unlock()
			return
		}
		p.timer = nil
		p.mu.Unlock()

		retry()
	})
	return true
}

// Cancel drops a pending retry. It reports whether one was pending.
func (p *ReconnectPolicy) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *ReconnectPolicy) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

func (p *ReconnectPolicy) Delay() time.Duration {
	return p.delay
}

func (p *ReconnectPolicy) stopLocked() bool {
	p.seq++
	if p.timer == nil {
		return false
	}
	p.timer.Stop()
	p.timer = nil
	return true
}
