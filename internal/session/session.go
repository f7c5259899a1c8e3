// Package session provides the process-scoped session identifier stamped
// on every audit event Scout writes.
package session

import (
	"sync"

	"github.com/google/uuid"
)

var (
	once sync.Once
	id   string
)

// ID returns this process's session identifier, generating it under a lock
// on first call. It is immutable for the remainder of the process lifetime.
func ID() string {
	once.Do(func() {
		id = uuid.NewString()
	})
	return id
}

// Reset clears the cached session ID. It exists only for tests that need a
// fresh ID per test case; production code never calls it.
func Reset() {
	once = sync.Once{}
	id = ""
}
