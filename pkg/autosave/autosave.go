// Package autosave debounces worksheet edits into saves.
//
// Each key (typically one worksheet) has its own idle timer. When the timer
// fires the key's current snapshot is taken, numbered, and handed to a Saver.
// A snapshot must hold the whole state of its key: a newer one replaces an
// older one, so two independent documents need two keys.
// At most one save per key is in flight; snapshots taken meanwhile replace
// each other and the newest is sent once the in-flight save finishes, so an
// older snapshot is never sent after a newer one. Failed saves are retried
// with exponential backoff and the newest snapshot is kept until one succeeds.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
)

// DefaultDebounce sits in the middle of the 1-2s idle window.
const DefaultDebounce = 1500 * time.Millisecond

var (
	ErrClosed     = errors.New("autosave: debouncer closed")
	ErrUnknownKey = errors.New("autosave: no snapshotter registered for key")

	errSuperseded = errors.New("autosave: superseded by a newer snapshot")
)

type Status int

const (
	// Pending means there are edits that have not been saved yet.
	Pending Status = iota
	Saving
	Saved
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Payload is one snapshot of a key. Seq increases by one per snapshot.
type Payload struct {
	Key  string
	Seq  uint64
	Data any
}

type Saver interface {
	Save(ctx context.Context, p Payload) error
}

type SaverFunc func(ctx context.Context, p Payload) error

func (f SaverFunc) Save(ctx context.Context, p Payload) error { return f(ctx, p) }

// Snapshotter returns the current state of whatever is being edited.
// CurrentSnapshot is called with the debouncer's lock held and must not call
// back into the Debouncer.
type Snapshotter interface {
	CurrentSnapshot() any
}

type SnapshotFunc func() any

func (f SnapshotFunc) CurrentSnapshot() any { return f() }

// Permanent marks a save error that retrying cannot fix, such as a
// validation error or a version conflict.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// StatusEvent is delivered to Options.OnStatus. WillRetry is set on Failed
// events for attempts that will be retried.
type StatusEvent struct {
	Key       string
	Seq       uint64
	Status    Status
	Err       error
	WillRetry bool
}

type Options struct {
	// Debounce is the idle time after the last change before saving.
	Debounce time.Duration
	// Retry policy for a single snapshot. Zero values use the defaults.
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
	// OnStatus may be called from any goroutine.
	OnStatus func(StatusEvent)
	Log      *logger.Logger
}

type entry struct {
	source Snapshotter
	draft  any

	timer *time.Timer
	gen   uint64

	seq     uint64
	next    *Payload // newest snapshot waiting behind the in-flight save
	failed  *Payload // snapshot whose retries ran out
	lastErr error
	running bool
	done    chan struct{}
	status  Status
}

type Debouncer struct {
	saver Saver
	opts  Options
	log   *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	keys   map[string]*entry
	closed bool
}

func New(saver Saver, opts Options) *Debouncer {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 2 * time.Minute
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		saver:  saver,
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		keys:   make(map[string]*entry),
	}
}

func (d *Debouncer) entryLocked(key string) *entry {
	e, ok := d.keys[key]
	if !ok {
		e = &entry{status: Saved}
		d.keys[key] = e
	}
	return e
}

// Register sets the snapshot source for key. Changed then pulls from it.
func (d *Debouncer) Register(key string, src Snapshotter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entryLocked(key).source = src
}

// Unregister saves any pending change for key immediately and detaches its
// snapshotter.
func (d *Debouncer) Unregister(key string) {
	var evts []StatusEvent
	d.mu.Lock()
	if e, ok := d.keys[key]; ok {
		if e.timer != nil {
			evts = d.fireLocked(key, e)
		}
		e.source = nil
	}
	d.mu.Unlock()
	d.emit(evts)
}

// Changed records an edit to a registered key and restarts its idle timer.
func (d *Debouncer) Changed(key string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	e, ok := d.keys[key]
	if !ok || e.source == nil {
		d.mu.Unlock()
		return ErrUnknownKey
	}
	evts := d.armLocked(key, e)
	d.mu.Unlock()
	d.emit(evts)
	return nil
}

// Submit records an edit whose snapshot is data, for callers without a
// Snapshotter.
func (d *Debouncer) Submit(key string, data any) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	e := d.entryLocked(key)
	e.draft = data
	evts := d.armLocked(key, e)
	d.mu.Unlock()
	d.emit(evts)
	return nil
}

func (d *Debouncer) armLocked(key string, e *entry) []StatusEvent {
	var evts []StatusEvent
	if e.timer == nil && e.status != Pending {
		evts = append(evts, d.setLocked(e, StatusEvent{Key: key, Seq: e.seq, Status: Pending}))
	} else if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(d.opts.Debounce, func() { d.fire(key, gen) })
	return evts
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	e, ok := d.keys[key]
	if !ok || e.gen != gen || e.timer == nil {
		// Re-armed or flushed since this timer was set.
		d.mu.Unlock()
		return
	}
	evts := d.fireLocked(key, e)
	d.mu.Unlock()
	d.emit(evts)
}

// fireLocked snapshots key and queues the snapshot.
func (d *Debouncer) fireLocked(key string, e *entry) []StatusEvent {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	data := e.draft
	if e.source != nil {
		data = e.source.CurrentSnapshot()
	}
	e.seq++
	return d.enqueueLocked(e, Payload{Key: key, Seq: e.seq, Data: data})
}

func (d *Debouncer) enqueueLocked(e *entry, p Payload) []StatusEvent {
	e.failed = nil
	if e.running {
		e.next = &p
		return nil
	}
	e.running = true
	e.done = make(chan struct{})
	d.wg.Add(1)
	go d.work(e, p)
	return nil
}

func (d *Debouncer) work(e *entry, p Payload) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		saving := d.setLocked(e, StatusEvent{Key: p.Key, Seq: p.Seq, Status: Saving})
		d.mu.Unlock()
		d.emit([]StatusEvent{saving})

		err := d.saveWithRetry(e, p)

		var evts []StatusEvent
		d.mu.Lock()
		switch {
		case err == nil:
			e.lastErr = nil
			if e.next == nil && e.timer == nil {
				evts = append(evts, d.setLocked(e, StatusEvent{Key: p.Key, Seq: p.Seq, Status: Saved}))
			}
		case errors.Is(err, errSuperseded):
		default:
			e.lastErr = err
			if e.next == nil {
				failed := p
				e.failed = &failed
				evts = append(evts, d.setLocked(e, StatusEvent{Key: p.Key, Seq: p.Seq, Status: Failed, Err: err}))
			} else {
				d.log.Warn("autosave snapshot dropped for newer one", "key", p.Key, "seq", p.Seq, "error", err)
			}
		}
		if e.next != nil && d.ctx.Err() == nil {
			p = *e.next
			e.next = nil
			d.mu.Unlock()
			d.emit(evts)
			continue
		}
		if e.next != nil {
			// Shutting down: keep the newest snapshot visible as unsaved.
			e.failed, e.next = e.next, nil
			e.lastErr = d.ctx.Err()
			evts = append(evts, d.setLocked(e, StatusEvent{Key: p.Key, Seq: e.failed.Seq, Status: Failed, Err: e.lastErr}))
		} else if e.timer != nil {
			evts = append(evts, d.setLocked(e, StatusEvent{Key: p.Key, Seq: e.seq, Status: Pending}))
		}
		e.running = false
		close(e.done)
		d.mu.Unlock()
		d.emit(evts)
		return
	}
}

func (d *Debouncer) saveWithRetry(e *entry, p Payload) error {
	b := backoff.NewExponentialBackOff()
	if d.opts.InitialInterval > 0 {
		b.InitialInterval = d.opts.InitialInterval
	}
	if d.opts.MaxInterval > 0 {
		b.MaxInterval = d.opts.MaxInterval
	}

	attempt := 0
	_, err := backoff.Retry(d.ctx, func() (struct{}, error) {
		attempt++
		if attempt > 1 {
			d.mu.Lock()
			superseded := e.next != nil
			d.mu.Unlock()
			if superseded {
				return struct{}{}, backoff.Permanent(errSuperseded)
			}
		}
		return struct{}{}, d.saver.Save(d.ctx, p)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(d.opts.MaxElapsed),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.log.Debug("autosave failed, retrying", "key", p.Key, "seq", p.Seq, "attempt", attempt, "wait", wait, "error", err)
			d.mu.Lock()
			evt := d.setLocked(e, StatusEvent{Key: p.Key, Seq: p.Seq, Status: Failed, Err: err, WillRetry: true})
			d.mu.Unlock()
			d.emit([]StatusEvent{evt})
		}),
	)
	return err
}

func (d *Debouncer) setLocked(e *entry, evt StatusEvent) StatusEvent {
	e.status = evt.Status
	return evt
}

func (d *Debouncer) emit(evts []StatusEvent) {
	if d.opts.OnStatus == nil {
		return
	}
	for _, evt := range evts {
		d.opts.OnStatus(evt)
	}
}

// Status reports the last known state of key. Unknown keys are Saved.
func (d *Debouncer) Status(key string) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.keys[key]; ok {
		return e.status
	}
	return Saved
}

// Flush saves every pending change now, retries snapshots whose retries ran
// out, and waits for all saves to finish. The returned error names the keys
// that are still unsaved.
func (d *Debouncer) Flush(ctx context.Context) error {
	var (
		evts  []StatusEvent
		waits []chan struct{}
	)
	d.mu.Lock()
	for key, e := range d.keys {
		switch {
		case e.timer != nil:
			evts = append(evts, d.fireLocked(key, e)...)
		case e.failed != nil && !e.running:
			evts = append(evts, d.enqueueLocked(e, *e.failed)...)
		}
		if e.running {
			waits = append(waits, e.done)
		}
	}
	d.mu.Unlock()
	d.emit(evts)

	for _, done := range waits {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var errs []error
	d.mu.Lock()
	for key, e := range d.keys {
		if e.failed != nil {
			errs = append(errs, fmt.Errorf("%s (seq %d): %w", key, e.failed.Seq, e.lastErr))
		}
	}
	d.mu.Unlock()
	return errors.Join(errs...)
}

// Close flushes and stops the debouncer. Changes made from the moment Close
// is called return ErrClosed, so nothing is accepted after the final flush.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	err := d.Flush(ctx)
	d.mu.Lock()
	// Only left armed when ctx ended the flush early.
	for _, e := range d.keys {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
	return err
}
