package vm

import (
	"fmt"
	"sync"
	"time"
)

// Monitor is the reentrant mutex plus condition variable every Object
// carries, backing monitorenter/monitorexit and Object.wait/notify.
//
// original_source's ObjectValue drives wait/notify/notifyAll through the
// Condition object itself, which only exposes Wait/Signal/Broadcast — not
// a second acquire/release pair — so a notify racing a fresh monitorenter
// can be lost. This implementation instead keeps the owning goroutine's
// lock held across Wait, using sync.Cond's own contract, which requires
// the caller to already hold the lock Cond was built on.
type Monitor struct {
	mu          sync.Mutex
	cond        *sync.Cond
	owner       VMThread
	depth       int
	notifyCount uint64
}

func newMonitor() *Monitor {
	m := &Monitor{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Enter acquires the monitor, reentrantly for the same thread.
func (m *Monitor) Enter(t VMThread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.owner != nil && m.owner != t {
		m.cond.Wait()
	}
	m.owner = t
	m.depth++
}

// Exit releases one level of ownership, raising a PanicException if the
// calling thread does not own the monitor.
func (m *Monitor) Exit(t VMThread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != t {
		return fmt.Errorf("monitor: thread does not own this monitor")
	}
	m.depth--
	if m.depth == 0 {
		m.owner = nil
		m.cond.Broadcast()
	}
	return nil
}

// Wait releases the monitor, blocks until notified or timeoutMillis
// elapses (0 means forever), then reacquires it before returning.
//
// Release and the actual wait are tracked separately: owner turning nil
// just means the monitor is unheld, which happens on every Wait call
// whether or not anyone ever notifies it, so the wake condition here is
// notifyCount advancing past the value observed at release, with a timer
// flipping the same flag as a forced wake when timeoutMillis elapses.
func (m *Monitor) Wait(t VMThread, timeoutMillis int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != t {
		return fmt.Errorf("monitor: wait called by thread that does not own this monitor")
	}
	savedDepth := m.depth
	m.depth = 0
	m.owner = nil
	startCount := m.notifyCount
	m.cond.Broadcast()

	var timedOut bool
	if timeoutMillis > 0 {
		timer := time.AfterFunc(time.Duration(timeoutMillis)*time.Millisecond, func() {
			m.mu.Lock()
			timedOut = true
			m.cond.Broadcast()
			m.mu.Unlock()
		})
		defer timer.Stop()
	}
	for m.notifyCount == startCount && !timedOut {
		m.cond.Wait()
	}

	for m.owner != nil && m.owner != t {
		m.cond.Wait()
	}
	m.owner = t
	m.depth = savedDepth
	return nil
}

// Notify signals one waiter; NotifyAll wakes all of them. Both bump the
// shared notify count that every Wait loop watches, so after Notify any
// thread waiting at that moment returns once it next wakes (Wait's
// release of the monitor and the timeout both broadcast). Both are
// no-ops if nobody is waiting.
func (m *Monitor) Notify(t VMThread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != t {
		return fmt.Errorf("monitor: notify called by thread that does not own this monitor")
	}
	m.notifyCount++
	m.cond.Signal()
	return nil
}

func (m *Monitor) NotifyAll(t VMThread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != t {
		return fmt.Errorf("monitor: notifyAll called by thread that does not own this monitor")
	}
	m.notifyCount++
	m.cond.Broadcast()
	return nil
}

// VMThread identifies the host goroutine driving one interpreter.
type VMThread interface {
	ThreadID() int64
}
