package core

import "sync"

// KeyedMutex serializes work per key. Each aggregate (session, assignment,
// rank tuple) owns its own consistency boundary, so writers against distinct
// keys never contend while derived-counter recomputes against the same key
// are mutually exclusive.
type KeyedMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

func (km *KeyedMutex) Lock(key string) {
	mu, _ := km.locks.LoadOrStore(key, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
}

func (km *KeyedMutex) Unlock(key string) {
	if mu, ok := km.locks.Load(key); ok {
		mu.(*sync.Mutex).Unlock()
	}
}
