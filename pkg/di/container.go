// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/tlvinfo/pkg/config"
	"github.com/ssargent/tlvinfo/pkg/storage"
)

// BackendOpener opens the storage backend described by a configuration.
type BackendOpener func(cfg config.Storage) (storage.Backend, error)

// Container holds all the dependencies for the application
type Container struct {
	openBackend BackendOpener
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		openBackend: storage.Open,
	}
}

// OpenBackend opens the configured storage backend
func (c *Container) OpenBackend(cfg config.Storage) (storage.Backend, error) {
	return c.openBackend(cfg)
}

// SetBackendOpener allows overriding how backends are opened (for testing)
func (c *Container) SetBackendOpener(opener BackendOpener) {
	c.openBackend = opener
}
