// Package seeds implements the seed repository: the single writer of the vault
// document and the publisher of its read model and change notifications.
package seeds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/repository"
)

// Identifier bases and propagation defaults.
const (
	FirstSeedID    int64 = 1000
	FirstAuthToken int64 = 4000
	FirstAccountID int64 = 7000

	DefaultPropagationTimeout = 2 * time.Second

	maxCASRetries = 5
	commitBacklog = 16
)

type commit struct {
	doc     repository.Document
	version uint64
}

// transform edits doc in place and reports the resulting changes. An empty
// change list means the mutation is a no-op and nothing is written.
type transform func(doc *repository.Document) ([]model.ChangeNotification, error)

// Repository owns the vault document. Mutations are serialized, persisted with
// compare-and-swap and published to a lock-free snapshot.
type Repository struct {
	store   repository.DurableStore
	log     *zap.Logger
	timeout time.Duration

	// mu serializes mutations; doc and version are the last committed state.
	mu      sync.Mutex
	doc     repository.Document
	version uint64

	snap    atomic.Pointer[Snapshot]
	waitMu  sync.Mutex
	changed chan struct{}

	loaded     chan struct{}
	loadedOnce sync.Once
	loadErr    error

	commits chan commit
	pubDone chan struct{}

	subMu     sync.Mutex
	subs      map[chan model.ChangeNotification]struct{}
	observers map[chan *Snapshot]struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeMu   sync.RWMutex
	closed    bool
	inflight  sync.WaitGroup
	closeOnce sync.Once

	beforePublish func(version uint64)
}

// New starts loading the document from store in the background.
// A non-positive propagationTimeout selects DefaultPropagationTimeout.
func New(store repository.DurableStore, log *zap.Logger, propagationTimeout time.Duration) *Repository {
	return newRepository(store, log, propagationTimeout, nil)
}

func newRepository(store repository.DurableStore, log *zap.Logger, propagationTimeout time.Duration, beforePublish func(uint64)) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	if propagationTimeout <= 0 {
		propagationTimeout = DefaultPropagationTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Repository{
		store:     store,
		log:       log,
		timeout:   propagationTimeout,
		changed:   make(chan struct{}),
		loaded:    make(chan struct{}),
		commits:   make(chan commit, commitBacklog),
		pubDone:   make(chan struct{}),
		subs:      make(map[chan model.ChangeNotification]struct{}),
		observers: make(map[chan *Snapshot]struct{}),
		ctx:       ctx,
		cancel:    cancel,

		beforePublish: beforePublish,
	}
	go r.publishLoop()

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.initialLoad()
	}()
	return r
}

func (r *Repository) initialLoad() {
	doc, ver, err := r.store.Load(r.ctx)
	if err != nil {
		r.log.Error("seed repository load failed", zap.Error(err))
		r.loadErr = fmt.Errorf("load vault document: %w", err)
		r.loadedOnce.Do(func() { close(r.loaded) })
		return
	}
	r.mu.Lock()
	r.adopt(doc, ver)
	r.mu.Unlock()
	r.log.Debug("seed repository loaded", zap.Uint64("version", ver), zap.Int("seeds", len(doc.Seeds)))
}

// adopt installs a document read from the store. Called with mu held.
func (r *Repository) adopt(doc repository.Document, version uint64) {
	seedCounters(&doc)
	r.doc, r.version = doc, version
	r.commits <- commit{doc: doc, version: version}
}

// seedCounters makes every counter at least its base and above every persisted id.
func seedCounters(doc *repository.Document) {
	maxSeed, maxToken, maxAccount := FirstSeedID-1, FirstAuthToken-1, FirstAccountID-1
	for _, s := range doc.Seeds {
		maxSeed = max(maxSeed, s.SeedID)
		for _, a := range s.Authorizations {
			maxToken = max(maxToken, a.AuthToken)
		}
		for _, a := range s.KnownAccounts {
			maxAccount = max(maxAccount, a.AccountID)
		}
	}
	doc.NextSeedID = max(doc.NextSeedID, maxSeed+1)
	doc.NextAuthToken = max(doc.NextAuthToken, maxToken+1)
	doc.NextAccountID = max(doc.NextAccountID, maxAccount+1)
}

func (r *Repository) publishLoop() {
	defer close(r.pubDone)
	for c := range r.commits {
		r.publish(c)
	}
}

func (r *Repository) publish(c commit) {
	if cur := r.snap.Load(); cur != nil && c.version < cur.Version {
		return
	}
	if r.beforePublish != nil {
		r.beforePublish(c.version)
	}
	s := buildSnapshot(c.doc, c.version)
	r.snap.Store(s)

	r.waitMu.Lock()
	close(r.changed)
	r.changed = make(chan struct{})
	r.waitMu.Unlock()

	r.loadedOnce.Do(func() { close(r.loaded) })

	r.subMu.Lock()
	for ch := range r.observers {
		offerLatest(ch, s)
	}
	r.subMu.Unlock()
}

// offerLatest replaces any undelivered snapshot with s.
func offerLatest(ch chan *Snapshot, s *Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Snapshot returns the current read model. Before the first load completes it
// is empty with version 0.
func (r *Repository) Snapshot() *Snapshot {
	if s := r.snap.Load(); s != nil {
		return s
	}
	return emptySnapshot()
}

// DelayUntilDataValid blocks until the first document load has been published.
func (r *Repository) DelayUntilDataValid(ctx context.Context) error {
	select {
	case <-r.loaded:
		return r.loadErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ObserveSnapshots registers an observer. The channel holds at most the newest
// undelivered snapshot. Call the returned func to unregister.
func (r *Repository) ObserveSnapshots() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)
	r.subMu.Lock()
	if r.observers == nil {
		r.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.observers[ch] = struct{}{}
	if s := r.snap.Load(); s != nil {
		ch <- s
	}
	r.subMu.Unlock()
	return ch, func() {
		r.subMu.Lock()
		if _, ok := r.observers[ch]; ok {
			delete(r.observers, ch)
			close(ch)
		}
		r.subMu.Unlock()
	}
}

// Subscribe returns a change stream with a buffer of one. Notifications that
// arrive while the buffer is full are dropped.
func (r *Repository) Subscribe() (<-chan model.ChangeNotification, func()) {
	ch := make(chan model.ChangeNotification, 1)
	r.subMu.Lock()
	if r.subs == nil {
		r.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.subs[ch] = struct{}{}
	r.subMu.Unlock()
	return ch, func() {
		r.subMu.Lock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
		r.subMu.Unlock()
	}
}

func (r *Repository) emit(changes []model.ChangeNotification) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, c := range changes {
		for ch := range r.subs {
			select {
			case ch <- c:
			default:
				r.log.Debug("change notification dropped", zap.Stringer("change", c))
			}
		}
	}
}

// Close waits for in-flight mutations, stops the publisher and closes every
// subscriber and observer channel.
func (r *Repository) Close() error {
	r.closeOnce.Do(func() {
		r.closeMu.Lock()
		r.closed = true
		r.closeMu.Unlock()

		r.inflight.Wait()
		r.cancel()
		close(r.commits)
		<-r.pubDone

		r.subMu.Lock()
		for ch := range r.subs {
			close(ch)
		}
		for ch := range r.observers {
			close(ch)
		}
		r.subs, r.observers = nil, nil
		r.subMu.Unlock()
	})
	return nil
}

// mutate runs fn on the repository-owned context. If ctx ends first the caller
// gets ctx.Err() but the mutation still completes and notifies. The caller's
// ctx is only consulted after the mutation has been dispatched.
func (r *Repository) mutate(ctx context.Context, op string, fn transform) error {
	r.closeMu.RLock()
	if r.closed {
		r.closeMu.RUnlock()
		return fmt.Errorf("%s: seed repository is closed", op)
	}
	r.inflight.Add(1)
	r.closeMu.RUnlock()

	done := make(chan error, 1)
	go func() {
		defer r.inflight.Done()
		if err := r.DelayUntilDataValid(r.ctx); err != nil {
			done <- fmt.Errorf("%s: %w", op, err)
			return
		}
		done <- r.apply(op, fn)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Repository) apply(op string, fn transform) error {
	log := r.log.With(zap.String("op", op))
	log.Debug("ENTER")

	changes, version, err := r.commit(op, fn)
	if err != nil {
		log.Debug("EXIT", zap.Error(err))
		return err
	}
	if len(changes) == 0 {
		log.Debug("EXIT no-op")
		return nil
	}

	if !r.awaitVersion(version) {
		log.Error("change propagation timed out; write is durable",
			zap.Uint64("version", version), zap.Duration("timeout", r.timeout))
		err = fmt.Errorf("%s: %w", op, errs.ErrTimeout)
	}
	r.emit(changes)
	log.Debug("EXIT", zap.Uint64("version", version), zap.Int("changes", len(changes)))
	return err
}

// commit runs fn under the mutation lock and persists the result.
func (r *Repository) commit(op string, fn transform) ([]model.ChangeNotification, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; ; attempt++ {
		next := r.doc.Clone()
		changes, err := fn(&next)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		if len(changes) == 0 {
			return nil, 0, nil
		}
		if err := checkInvariants(r.doc, next); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}

		version, err := r.store.CompareAndSwap(r.ctx, r.version, next)
		if err == nil {
			r.doc, r.version = next, version
			r.commits <- commit{doc: next, version: version}
			return changes, version, nil
		}
		if !errors.Is(err, errs.ErrVersionConflict) || attempt >= maxCASRetries {
			return nil, 0, fmt.Errorf("%s: persist: %w", op, err)
		}

		r.log.Warn("vault document changed externally; reloading",
			zap.String("op", op), zap.Uint64("expected", r.version), zap.Error(err))
		doc, ver, lerr := r.store.Load(r.ctx)
		if lerr != nil {
			return nil, 0, fmt.Errorf("%s: reload: %w", op, lerr)
		}
		r.adopt(doc, ver)
	}
}

// awaitVersion waits until the published snapshot reaches version.
func (r *Repository) awaitVersion(version uint64) bool {
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	for {
		r.waitMu.Lock()
		ch := r.changed
		r.waitMu.Unlock()
		if s := r.snap.Load(); s != nil && s.Version >= version {
			return true
		}
		select {
		case <-ch:
		case <-timer.C:
			return false
		}
	}
}
