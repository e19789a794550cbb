// Package blob re-exports the blob abstractions and selects a driver from
// configuration. Code outside this package depends on blob.Store only.
package blob

import (
	"porenet/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrNotExist reports a missing key.
	ErrNotExist = core.ErrNotExist
	// ErrExists reports a Put on an existing key.
	ErrExists = core.ErrExists
)
