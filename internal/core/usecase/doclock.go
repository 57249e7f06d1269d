package usecase

import "sync"

// DocumentLocks serializes pipeline stages per document id. Stages for
// one document must never run concurrently: each stage reads the current
// record, performs external work, then writes, so overlapping triggers
// (a second /ocr while an analyze is in flight) would race without this.
type DocumentLocks struct {
	mu    sync.Mutex
	locks map[int64]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

func NewDocumentLocks() *DocumentLocks {
	return &DocumentLocks{locks: make(map[int64]*docLock)}
}

// Acquire blocks until the document's lock is held and returns the
// release function. Entries are dropped once the last holder releases.
func (l *DocumentLocks) Acquire(id int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &docLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
