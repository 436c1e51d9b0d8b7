// Package persistence provides the storage abstraction for plans and run
// results.
package persistence

import (
	"context"

	"github.com/webpilot/webpilot/pkg/models"
)

// PlanRepository stores plan documents.
type PlanRepository interface {
	All(ctx context.Context) ([]*models.Plan, error)
	ByID(ctx context.Context, id string) (*models.Plan, error)
	Save(ctx context.Context, p *models.Plan) error
	Delete(ctx context.Context, id string) error
}

// ResultRepository stores run results.
type ResultRepository interface {
	All(ctx context.Context) ([]*models.RunResult, error)
	ByID(ctx context.Context, id string) (*models.RunResult, error)
	ByPlan(ctx context.Context, planID string) ([]*models.RunResult, error)
	Save(ctx context.Context, result *models.RunResult) error
}

type Persistence interface {
	Plans() PlanRepository
	Results() ResultRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
