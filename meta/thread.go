package meta

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"github.com/sasha-s/go-deadlock"
)

// ---------------------------------------------------------------------------
// Thread: a FIFO event loop objects can be bound to
// ---------------------------------------------------------------------------

// Event is a unit of work delivered through a thread's queue.
type Event interface {
	Execute()
}

// EventFunc adapts a function to Event.
type EventFunc func()

func (f EventFunc) Execute() { f() }

// Thread owns an unbounded FIFO of events and executes them one at a time
// on whichever goroutine is running its loop. Objects bound to a thread
// receive queued calls there.
type Thread struct {
	name string

	mu    deadlock.Mutex
	queue []Event

	// owner is the goroutine id running the loop or ProcessEvents, 0 when
	// none does.
	owner atomic.Int64

	wake     chan struct{}
	quit     chan struct{}
	stopOnce sync.Once
}

// NewThread creates a thread. Nothing runs until Start, Exec or
// ProcessEvents is called.
func NewThread(name string) *Thread {
	return &Thread{
		name: name,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

// Name returns the thread's name.
func (t *Thread) Name() string { return t.name }

func (t *Thread) String() string { return fmt.Sprintf("Thread(%s)", t.name) }

// Start runs the event loop on a new goroutine. It returns once the loop
// goroutine is bound to t. Starting a thread whose loop is already running
// logs an error and does nothing.
func (t *Thread) Start() {
	ready := make(chan struct{})
	go t.exec(ready)
	<-ready
}

// Exec runs the event loop on the calling goroutine until Stop.
func (t *Thread) Exec() {
	t.exec(nil)
}

func (t *Thread) exec(ready chan struct{}) {
	gid := goid.Get()
	if !t.owner.CompareAndSwap(0, gid) {
		log.Errorf("thread %s: event loop is already running", t.name)
		if ready != nil {
			close(ready)
		}
		return
	}
	defer t.owner.Store(0)
	prev := bindThread(gid, t)
	defer bindThread(gid, prev)
	if ready != nil {
		close(ready)
	}

	for {
		t.drain()
		select {
		case <-t.wake:
		case <-t.quit:
			return
		}
	}
}

// ProcessEvents executes the events pending at the time of the call on
// the calling goroutine, which acts as t meanwhile. Returns the number of
// events executed. While another goroutine runs t's loop nothing is
// executed and 0 is returned; called from an event on t it drains
// re-entrantly.
func (t *Thread) ProcessEvents() int {
	gid := goid.Get()
	switch {
	case t.owner.Load() == gid:
		return t.drain()
	case !t.owner.CompareAndSwap(0, gid):
		return 0
	}
	defer t.owner.Store(0)
	prev := bindThread(gid, t)
	defer bindThread(gid, prev)
	return t.drain()
}

func (t *Thread) drain() int {
	t.mu.Lock()
	batch := t.queue
	t.queue = nil
	t.mu.Unlock()

	for i, ev := range batch {
		select {
		case <-t.quit:
			return i
		default:
		}
		t.execute(ev)
	}
	return len(batch)
}

// execute runs one event, recovering from panics.
func (t *Thread) execute(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("thread %s: event panicked: %v", t.name, r)
		}
	}()
	ev.Execute()
}

// Post appends ev to the queue. It never blocks.
func (t *Thread) Post(ev Event) error {
	if t.Stopped() {
		return fmt.Errorf("%w: %s", ErrThreadStopped, t.name)
	}
	t.mu.Lock()
	t.queue = append(t.queue, ev)
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued events.
func (t *Thread) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Do runs fn on the thread and waits for it. Called from the thread
// itself, fn runs inline. If t stops before fn starts, fn never runs and
// ErrThreadStopped is returned; once fn has started Do waits for it.
func (t *Thread) Do(fn func()) error {
	if CurrentThread() == t {
		fn()
		return nil
	}
	r := newRendezvous()
	err := t.Post(EventFunc(func() {
		if !r.begin() {
			return
		}
		defer r.finish()
		fn()
	}))
	if err != nil {
		return err
	}
	if !r.wait(t) {
		return fmt.Errorf("%w: %s", ErrThreadStopped, t.name)
	}
	return nil
}

// Stop ends the event loop. Events still queued are not delivered.
func (t *Thread) Stop() {
	t.stopOnce.Do(func() {
		close(t.quit)
	})
}

// Stopped reports whether Stop has been called.
func (t *Thread) Stopped() bool {
	select {
	case <-t.quit:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Rendezvous between a blocked caller and the event it posted
// ---------------------------------------------------------------------------

const (
	callPending int32 = iota
	callRunning
	callAbandoned
)

// rendezvous decides exactly once whether a posted blocking call runs or
// is abandoned because its thread stopped first.
type rendezvous struct {
	state atomic.Int32
	done  chan struct{}
}

func newRendezvous() *rendezvous {
	return &rendezvous{done: make(chan struct{})}
}

// begin claims the call for execution. It fails if the caller gave up.
func (r *rendezvous) begin() bool {
	return r.state.CompareAndSwap(callPending, callRunning)
}

func (r *rendezvous) finish() { close(r.done) }

// wait blocks until the call finishes or t stops before the call began.
// It reports whether the call ran.
func (r *rendezvous) wait(t *Thread) bool {
	select {
	case <-r.done:
		return true
	case <-t.quit:
		if r.state.CompareAndSwap(callPending, callAbandoned) {
			return false
		}
		<-r.done
		return true
	}
}

// ---------------------------------------------------------------------------
// Goroutine to thread binding
// ---------------------------------------------------------------------------

var (
	threadsMu deadlock.RWMutex
	threads   = make(map[int64]*Thread)
)

// bindThread binds goroutine gid to t (nil unbinds) and returns the
// previous binding.
func bindThread(gid int64, t *Thread) *Thread {
	threadsMu.Lock()
	defer threadsMu.Unlock()
	prev := threads[gid]
	if t == nil {
		delete(threads, gid)
	} else {
		threads[gid] = t
	}
	return prev
}

// CurrentThread returns the thread whose loop the calling goroutine is
// running, or nil.
func CurrentThread() *Thread {
	gid := goid.Get()
	threadsMu.RLock()
	defer threadsMu.RUnlock()
	return threads[gid]
}
