package local

import "github.com/anasnay11/mobility-pipeline/pkg/logger"

// NewTestStorage builds a LocalStorage rooted at an arbitrary directory for
// the external test package, which cannot reach the unexported fields.
func NewTestStorage(root string, log logger.Logger) *LocalStorage {
	return &LocalStorage{
		root:   root,
		logger: log,
	}
}

// Root exposes the storage root to the external test package.
func (l *LocalStorage) Root() string {
	return l.root
}
