package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/models"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, running due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type commit struct {
	ID, Title, Content string
	At                 time.Duration
}

type fakeCommitter struct {
	clock *fakeClock
	err   error
	gate  chan struct{}
	start chan struct{}

	mu    sync.Mutex
	calls []commit
}

func (f *fakeCommitter) Update(_ context.Context, id, title, content string) error {
	f.mu.Lock()
	f.calls = append(f.calls, commit{ID: id, Title: title, Content: content, At: f.clock.Now()})
	f.mu.Unlock()
	if f.start != nil {
		f.start <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.err
}

func (f *fakeCommitter) Calls() []commit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]commit(nil), f.calls...)
}

type statusLog struct {
	mu sync.Mutex
	s  []Status
}

func (l *statusLog) record(s Status) {
	l.mu.Lock()
	l.s = append(l.s, s)
	l.mu.Unlock()
}

func (l *statusLog) all() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Status(nil), l.s...)
}

func setup(t *testing.T, note models.Note, opts ...Option) (*Session, *fakeClock, *fakeCommitter) {
	t.Helper()
	clock := &fakeClock{}
	c := &fakeCommitter{clock: clock}
	s := Open(note, c, append([]Option{WithClock(clock)}, opts...)...)
	t.Cleanup(s.Close)
	return s, clock, c
}

var noteA = models.Note{ID: "A", Title: "A", Content: ""}

func TestSingleEdit_CommitsAfterDelay(t *testing.T) {
	s, clock, c := setup(t, noteA)

	s.SetContent("Hello")
	assert.Equal(t, PendingCommit, s.Status())

	clock.Advance(999 * time.Millisecond)
	assert.Empty(t, c.Calls())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []commit{{ID: "A", Title: "A", Content: "Hello", At: time.Second}}, c.Calls())
	assert.Equal(t, Idle, s.Status())
}

func TestEditsWithinWindow_SingleCommitWithLastValues(t *testing.T) {
	s, clock, c := setup(t, noteA)

	s.SetContent("Hel")
	clock.Advance(500 * time.Millisecond)
	s.SetContent("Hello")
	s.SetTitle("Greeting")
	clock.Advance(999 * time.Millisecond)
	assert.Empty(t, c.Calls())

	clock.Advance(time.Second)
	assert.Equal(t, []commit{{ID: "A", Title: "Greeting", Content: "Hello", At: 1500 * time.Millisecond}}, c.Calls())
}

func TestClose_CancelsPendingCommit(t *testing.T) {
	clock := &fakeClock{}
	c := &fakeCommitter{clock: clock}

	a := Open(noteA, c, WithClock(clock))
	a.SetContent("never saved")
	clock.Advance(500 * time.Millisecond)

	a.Close()
	b := Open(models.Note{ID: "B", Title: "B"}, c, WithClock(clock))
	defer b.Close()
	clock.Advance(5 * time.Second)

	assert.Empty(t, c.Calls())
	assert.True(t, a.Closed())
	assert.Equal(t, Idle, b.Status())

	a.SetContent("after close")
	clock.Advance(5 * time.Second)
	assert.Empty(t, c.Calls(), "edits on a closed session are ignored")
}

func TestNoOpGuard(t *testing.T) {
	s, clock, c := setup(t, models.Note{ID: "A", Title: "A", Content: "same"})
	var log statusLog
	s.OnStatus(log.record)

	s.SetContent("changed")
	s.SetContent("same")
	clock.Advance(time.Second)

	assert.Empty(t, c.Calls())
	assert.Equal(t, Idle, s.Status())
	assert.Equal(t, []Status{PendingCommit, Idle}, log.all())
}

func TestNoOpGuard_ComparesWithLastSaved(t *testing.T) {
	s, clock, c := setup(t, noteA)

	s.SetContent("v1")
	clock.Advance(time.Second)
	require.Len(t, c.Calls(), 1)

	s.SetContent("v2")
	s.SetContent("v1")
	clock.Advance(time.Second)
	assert.Len(t, c.Calls(), 1, "buffer equals the committed values")
}

func TestSuccess_StatusesAndSavedCallback(t *testing.T) {
	var saved []Draft
	s, clock, _ := setup(t, noteA, OnSaved(func(d Draft) { saved = append(saved, d) }))
	var log statusLog
	s.OnStatus(log.record)

	s.SetTitle("New")
	clock.Advance(time.Second)

	assert.Equal(t, []Status{PendingCommit, Saving, Idle}, log.all())
	assert.Equal(t, []Draft{{ID: "A", Title: "New", Content: ""}}, saved)
}

func TestFailure_KeepsBufferAndDoesNotRetry(t *testing.T) {
	var failed []error
	s, clock, c := setup(t, noteA, OnFailed(func(_ Draft, err error) { failed = append(failed, err) }))
	boom := errors.New("HTTP error! status: 500")
	c.err = boom
	var log statusLog
	s.OnStatus(log.record)

	s.SetContent("Hello")
	clock.Advance(time.Second)

	assert.Equal(t, []Status{PendingCommit, Saving, SaveFailed, Idle}, log.all())
	assert.Equal(t, Idle, s.Status())
	assert.Equal(t, "Hello", s.Draft().Content, "unsaved edit stays in the buffer")
	assert.Equal(t, []error{boom}, failed)

	clock.Advance(time.Minute)
	assert.Len(t, c.Calls(), 1, "no automatic retry")

	c.err = nil
	s.SetContent("Hello")
	clock.Advance(time.Second)
	assert.Len(t, c.Calls(), 2, "last saved was not advanced by the failed commit")
}

func TestEditWhileSaving_StaysPending(t *testing.T) {
	s, clock, c := setup(t, noteA)
	c.gate = make(chan struct{})
	c.start = make(chan struct{}, 1)

	s.SetContent("first")
	done := make(chan struct{})
	go func() {
		clock.Advance(time.Second)
		close(done)
	}()
	<-c.start
	assert.Equal(t, Saving, s.Status())

	s.SetContent("second")
	close(c.gate)
	<-done
	assert.Equal(t, PendingCommit, s.Status())

	clock.Advance(time.Second)
	<-c.start
	calls := c.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "second", calls[1].Content)
	assert.Equal(t, Idle, s.Status())
}

func TestLateCompletionAfterClose_IsIgnored(t *testing.T) {
	var saved int
	s, clock, c := setup(t, noteA, OnSaved(func(Draft) { saved++ }))
	c.gate = make(chan struct{})
	c.start = make(chan struct{}, 1)

	s.SetContent("in flight")
	done := make(chan struct{})
	go func() {
		clock.Advance(time.Second)
		close(done)
	}()
	<-c.start
	s.Close()
	close(c.gate)
	<-done

	assert.Len(t, c.Calls(), 1, "the request still went out")
	assert.Zero(t, saved)
	assert.Equal(t, Saving, s.Status())
}

func TestDelayOption(t *testing.T) {
	s, clock, c := setup(t, noteA, WithDelay(250*time.Millisecond))
	s.SetContent("quick")
	clock.Advance(250 * time.Millisecond)
	require.Len(t, c.Calls(), 1)
	assert.Equal(t, 250*time.Millisecond, c.Calls()[0].At)
}

func TestStatusLabels(t *testing.T) {
	assert.Equal(t, "Saved", Idle.String())
	assert.Equal(t, "Unsaved changes", PendingCommit.String())
	assert.Equal(t, "Saving…", Saving.String())
	assert.Equal(t, "Save failed", SaveFailed.String())
}

func TestWallClock(t *testing.T) {
	c := &fakeCommitter{clock: &fakeClock{}, start: make(chan struct{}, 1)}
	s := Open(noteA, c, WithDelay(10*time.Millisecond))
	defer s.Close()

	s.SetContent("real timer")
	select {
	case <-c.start:
	case <-time.After(2 * time.Second):
		t.Fatal("commit did not happen")
	}
	assert.Equal(t, "real timer", c.Calls()[0].Content)
}
