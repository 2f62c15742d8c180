// Package methods assembles the leaf methods shipped with the pipe.
package methods

import (
	"github.com/morezero/method-pipe/pkg/methods/router"
	"github.com/morezero/method-pipe/pkg/methods/storage"
	"github.com/morezero/method-pipe/pkg/registry"
)

// Manifest lists every built-in method in registration order.
func Manifest() registry.Manifest {
	var m registry.Manifest
	m = append(m, storage.Entries()...)
	m = append(m, router.Entries()...)
	return m
}
