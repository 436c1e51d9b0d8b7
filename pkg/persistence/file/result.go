package file

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/webpilot/webpilot/pkg/models"
	"github.com/webpilot/webpilot/pkg/persistence"
)

// ResultRepository stores one JSON document per run result under
// <root>/results.
type ResultRepository struct {
	root string
}

func NewResultRepository(root string) *ResultRepository {
	return &ResultRepository{root: root}
}

func (rr *ResultRepository) dir() string {
	return path.Join(rr.root, "results")
}

// All loads every stored result, newest first by start time.
func (rr *ResultRepository) All(ctx context.Context) ([]*models.RunResult, error) {
	jsonFiles, err := fs.Glob(os.DirFS(rr.dir()), "*.json")
	if err != nil || len(jsonFiles) == 0 {
		return []*models.RunResult{}, nil
	}

	results := make([]*models.RunResult, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		result, err := rr.ByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	return results, nil
}

func (rr *ResultRepository) ByID(_ context.Context, id string) (*models.RunResult, error) {
	filePath := filepath.Clean(path.Join(rr.dir(), id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrResultNotFound
		}

		return nil, err
	}

	var result models.RunResult

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ByPlan filters stored results down to one plan.
func (rr *ResultRepository) ByPlan(ctx context.Context, planID string) ([]*models.RunResult, error) {
	all, err := rr.All(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.RunResult, 0, len(all))

	for _, result := range all {
		if result.PlanID == planID {
			filtered = append(filtered, result)
		}
	}

	return filtered, nil
}

func (rr *ResultRepository) Save(_ context.Context, result *models.RunResult) error {
	if err := os.MkdirAll(rr.dir(), 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path.Join(rr.dir(), result.ID+".json"), data, 0600)
}
