package ws

import "github.com/google/uuid"

// newConnID labels one accepted connection in logs and lifecycle events.
// Connection ids share the UUID format of every other id in the system but
// are never persisted.
func newConnID() string {
	return uuid.NewString()
}
