package blob

import "sync"

// Locked is a blob behind a read-write lock. Layers share their tops and
// bottoms through Locked values, reading concurrently and writing
// exclusively.
type Locked struct {
	mut sync.RWMutex
	b   *Blob
}

// NewLocked wraps a blob for sharing.
func NewLocked(b *Blob) *Locked {
	return &Locked{b: b}
}

// RLock locks the blob for reading and returns it. Release with RUnlock.
func (l *Locked) RLock() *Blob {
	l.mut.RLock()
	return l.b
}

// RUnlock releases a read lock.
func (l *Locked) RUnlock() {
	l.mut.RUnlock()
}

// Lock locks the blob for writing and returns it. Release with Unlock.
func (l *Locked) Lock() *Blob {
	l.mut.Lock()
	return l.b
}

// Unlock releases a write lock.
func (l *Locked) Unlock() {
	l.mut.Unlock()
}

// With runs body with the blob write-locked.
func (l *Locked) With(body func(*Blob)) {
	l.mut.Lock()
	body(l.b)
	l.mut.Unlock()
}

// WithRead runs body with the blob read-locked.
func (l *Locked) WithRead(body func(*Blob)) {
	l.mut.RLock()
	body(l.b)
	l.mut.RUnlock()
}
