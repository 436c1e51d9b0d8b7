// Package file provides file-based persistence for plans and run results.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/webpilot/webpilot/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory tree:
// plans live under <root>/plans, run results under <root>/results.
type Persistence struct {
	root    string
	plans   *PlanRepository
	results *ResultRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:    cleanRoot,
		plans:   NewPlanRepository(cleanRoot),
		results: NewResultRepository(cleanRoot),
	}
}

func (fp *Persistence) Plans() persistence.PlanRepository {
	return fp.plans
}

func (fp *Persistence) Results() persistence.ResultRepository {
	return fp.results
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
