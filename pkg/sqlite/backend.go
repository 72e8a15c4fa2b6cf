// Package sqlite exposes the embedded SQLite backend to programs that use
// propsync as a library. The implementation stays internal.
package sqlite

import (
	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/internal/sqlite"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// Backend is a document store with local object storage. It must be
// attached before use and detached when done.
type Backend interface {
	types.Backend
	types.ObjectStorage
	Attach(config types.Config) error
	Detach() error
}

// NewBackend creates a new SQLite backend. The backend is not attached;
// call Attach with a Config to open it. An empty publicBaseURL keeps the
// default media URL prefix.
//
// Example:
//
//	backend := sqlite.NewBackend("")
//	err := backend.Attach(types.DefaultConfig(".propsync-db"))
//	defer backend.Detach()
func NewBackend(publicBaseURL string) Backend {
	opts := []sqlite.Option{sqlite.WithLogger(logging.Nop())}
	if publicBaseURL != "" {
		opts = append(opts, sqlite.WithPublicBaseURL(publicBaseURL))
	}
	return sqlite.NewBackend(opts...)
}
