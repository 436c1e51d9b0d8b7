// Package cmd wires shared infrastructure for the command-line binaries.
package cmd

import (
	"github.com/webpilot/webpilot/pkg/persistence"
	"github.com/webpilot/webpilot/pkg/persistence/file"
)

// NewPersistence builds a persistence layer from a data URL. Only file-backed
// storage is supported; both "file:///var/data" and a bare path work.
func NewPersistence(dataURL string) persistence.Persistence {
	return file.NewPersistence(dataURL)
}
