// ABOUTME: Per-key mutexes so updates to different records never contend
// ABOUTME: Used for per-source read-modify-write over get/put stores

package keylock

import "sync"

// Locker hands out one mutex per key
type Locker struct {
	locks sync.Map
}

// Lock acquires the mutex for key and returns its unlock function
func (l *Locker) Lock(key string) func() {
	v, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
