package vm

import (
	"testing"
	"time"
)

func TestMonitorReentrant(t *testing.T) {
	m := newMonitor()
	owner := NewThread()

	m.Enter(owner)
	m.Enter(owner)

	if err := m.Exit(owner); err != nil {
		t.Fatalf("first Exit: %v", err)
	}
	if err := m.Exit(owner); err != nil {
		t.Fatalf("second Exit: %v", err)
	}
	if err := m.Exit(owner); err == nil {
		t.Error("Exit past depth zero should fail")
	}
}

func TestMonitorExitByNonOwnerFails(t *testing.T) {
	m := newMonitor()
	owner := NewThread()
	other := NewThread()

	m.Enter(owner)
	if err := m.Exit(other); err == nil {
		t.Error("expected an error exiting a monitor owned by a different thread")
	}
}

func TestMonitorEnterBlocksUntilReleased(t *testing.T) {
	m := newMonitor()
	owner := NewThread()
	waiter := NewThread()

	m.Enter(owner)

	acquired := make(chan struct{})
	go func() {
		m.Enter(waiter)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("waiter acquired the monitor while owner still held it")
	case <-time.After(50 * time.Millisecond):
	}

	if err := m.Exit(owner); err != nil {
		t.Fatalf("Exit: %v", err)
	}

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the monitor after it was released")
	}
	m.Exit(waiter)
}

func TestMonitorWaitNotify(t *testing.T) {
	m := newMonitor()
	a := NewThread()
	b := NewThread()

	if err := m.Wait(a, 1); err == nil {
		t.Error("Wait by a thread that does not hold the monitor should fail")
	}

	m.Enter(a)

	notifierDone := make(chan struct{})
	go func() {
		// Blocks in Enter until a's Wait below releases ownership,
		// regardless of goroutine scheduling order.
		m.Enter(b)
		m.Notify(b)
		m.Exit(b)
		close(notifierDone)
	}()

	if err := m.Wait(a, 0); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	<-notifierDone
	if err := m.Exit(a); err != nil {
		t.Fatalf("Exit: %v", err)
	}
}

func TestMonitorWaitTimeout(t *testing.T) {
	m := newMonitor()
	thread := NewThread()

	m.Enter(thread)
	start := time.Now()
	if err := m.Wait(thread, 50); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Wait returned too early: %v", elapsed)
	}
	m.Exit(thread)
}

func TestMonitorNotifyByNonOwnerFails(t *testing.T) {
	m := newMonitor()
	owner := NewThread()
	other := NewThread()

	m.Enter(owner)
	if err := m.Notify(other); err == nil {
		t.Error("expected an error notifying a monitor this thread does not own")
	}
	if err := m.NotifyAll(other); err == nil {
		t.Error("expected an error notifyAll-ing a monitor this thread does not own")
	}
}
