package file

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpilot/webpilot/pkg/models"
	"github.com/webpilot/webpilot/pkg/persistence"
)

func testPlan(id string) *models.Plan {
	return &models.Plan{
		ID:       id,
		Name:     "Plan " + id,
		Priority: "medium",
		Steps: []*models.Step{
			{
				ID:        "open",
				Name:      "Open page",
				Kind:      models.StepKindNavigate,
				Action:    "navigate",
				Value:     "https://example.com",
				DependsOn: []string{},
				Status:    models.StepStatusPending,
			},
			{
				ID:        "submit",
				Name:      "Submit",
				Kind:      models.StepKindClick,
				Action:    "click",
				Locator:   "#submit",
				DependsOn: []string{"open"},
				Status:    models.StepStatusPending,
			},
		},
	}
}

func TestPlanRepository_SaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	p := testPlan("checkout")
	require.NoError(t, fp.Plans().Save(ctx, p))

	loaded, err := fp.Plans().ByID(ctx, "checkout")
	require.NoError(t, err)

	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, p.Name, loaded.Name)
	assert.Equal(t, "medium", loaded.Priority)
	assert.Nil(t, loaded.Tags)
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, models.StepKindClick, loaded.Steps[1].Kind)
	assert.Equal(t, []string{"open"}, loaded.Steps[1].DependsOn)
}

func TestPlanRepository_SaveEmbedsProgressSnapshot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fp := NewPersistence(root)

	p := testPlan("halfway")
	p.Steps[0].Status = models.StepStatusSuccess
	p.Steps[1].Status = models.StepStatusFailed

	require.NoError(t, fp.Plans().Save(ctx, p))

	body, err := os.ReadFile(path.Join(root, "plans", "halfway.json"))
	require.NoError(t, err)

	var doc struct {
		Progress models.Progress `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))

	assert.Equal(t, 2, doc.Progress.Total)
	assert.Equal(t, 1, doc.Progress.Completed)
	assert.Equal(t, 1, doc.Progress.Failed)
	assert.InDelta(t, 50.0, doc.Progress.Percentage, 0.001)

	// The snapshot never feeds back into the loaded plan.
	loaded, err := fp.Plans().ByID(ctx, "halfway")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Progress().Completed)
}

func TestPlanRepository_RoundTripPreservesStatuses(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	p := testPlan("partial")
	p.Steps[0].Status = models.StepStatusSuccess
	p.Steps[1].Status = models.StepStatusFailed
	p.Steps[1].Result = &models.StepResult{Success: false, Error: "element not found"}
	p.Steps[1].RetryCount = 3

	require.NoError(t, fp.Plans().Save(ctx, p))

	loaded, err := fp.Plans().ByID(ctx, "partial")
	require.NoError(t, err)

	assert.Equal(t, models.StepStatusSuccess, loaded.Steps[0].Status)
	assert.Equal(t, models.StepStatusFailed, loaded.Steps[1].Status)
	assert.Equal(t, 3, loaded.Steps[1].RetryCount)
	require.NotNil(t, loaded.Steps[1].Result)
	assert.Equal(t, "element not found", loaded.Steps[1].Result.Error)
}

func TestPlanRepository_NormalizesSparseDocuments(t *testing.T) {
	root := t.TempDir()
	fp := NewPersistence(root)

	doc := `{
	  "id": "sparse",
	  "name": "Sparse",
	  "priority": "high",
	  "tags": null,
	  "steps": [
	    {"id": "s1", "name": "Go", "type": "navigate", "value": "https://example.com"}
	  ]
	}`

	require.NoError(t, os.MkdirAll(path.Join(root, "plans"), 0750))
	require.NoError(t, os.WriteFile(path.Join(root, "plans", "sparse.json"), []byte(doc), 0600))

	loaded, err := fp.Plans().ByID(context.Background(), "sparse")
	require.NoError(t, err)

	assert.Equal(t, "high", loaded.Priority)

	step := loaded.Steps[0]
	assert.Equal(t, models.StepStatusPending, step.Status, "absent status defaults to pending")
	assert.Equal(t, []string{}, step.DependsOn)
	assert.Equal(t, "navigate", step.Action)
}

func TestPlanRepository_RejectsInvalidDocuments(t *testing.T) {
	root := t.TempDir()
	fp := NewPersistence(root)

	require.NoError(t, os.MkdirAll(path.Join(root, "plans"), 0750))

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown step kind",
			doc:  `{"id": "x", "name": "X", "steps": [{"id": "s", "type": "hover"}]}`,
		},
		{
			name: "missing plan name",
			doc:  `{"id": "x", "steps": [{"id": "s", "type": "click"}]}`,
		},
		{
			name: "empty steps",
			doc:  `{"id": "x", "name": "X", "steps": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := path.Join(root, "plans", "x.json")
			require.NoError(t, os.WriteFile(file, []byte(tt.doc), 0600))

			_, err := fp.Plans().ByID(context.Background(), "x")
			assert.ErrorIs(t, err, persistence.ErrInvalidPlanDocument)
		})
	}
}

func TestPlanRepository_ByIDNotFound(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	_, err := fp.Plans().ByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, persistence.ErrPlanNotFound)
	assert.True(t, persistence.IsPlanNotFound(err))
}

func TestPlanRepository_Delete(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	require.NoError(t, fp.Plans().Save(ctx, testPlan("doomed")))
	require.NoError(t, fp.Plans().Delete(ctx, "doomed"))

	_, err := fp.Plans().ByID(ctx, "doomed")
	assert.ErrorIs(t, err, persistence.ErrPlanNotFound)

	err = fp.Plans().Delete(ctx, "doomed")
	assert.ErrorIs(t, err, persistence.ErrPlanNotFound)
}

func TestPlanRepository_AllSortedByID(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, fp.Plans().Save(ctx, testPlan(id)))
	}

	plans, err := fp.Plans().All(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 3)

	ids := []string{plans[0].ID, plans[1].ID, plans[2].ID}
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, ids)
}

func TestPlanRepository_AllEmptyRoot(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	plans, err := fp.Plans().All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func testResult(id, planID string, started time.Time) *models.RunResult {
	return &models.RunResult{
		ID:          id,
		PlanID:      planID,
		PlanName:    "Plan " + planID,
		Status:      models.RunStatusCompleted,
		StartedAt:   started,
		Total:       2,
		Completed:   2,
		SuccessRate: 100,
		Extracted:   map[string]string{"price": "$19.99"},
	}
}

func TestResultRepository_SaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	saved := testResult("run-1", "checkout", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, fp.Results().Save(ctx, saved))

	loaded, err := fp.Results().ByID(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, saved.PlanID, loaded.PlanID)
	assert.Equal(t, models.RunStatusCompleted, loaded.Status)
	assert.Equal(t, "$19.99", loaded.Extracted["price"])
}

func TestResultRepository_ByIDNotFound(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	_, err := fp.Results().ByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, persistence.ErrResultNotFound)
}

func TestResultRepository_ByPlanFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	fp := NewPersistence(t.TempDir())

	base := time.Now().UTC()
	require.NoError(t, fp.Results().Save(ctx, testResult("run-old", "checkout", base.Add(-time.Hour))))
	require.NoError(t, fp.Results().Save(ctx, testResult("run-new", "checkout", base)))
	require.NoError(t, fp.Results().Save(ctx, testResult("run-other", "login", base)))

	results, err := fp.Results().ByPlan(ctx, "checkout")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "run-new", results[0].ID, "newest first")
	assert.Equal(t, "run-old", results[1].ID)
}

func TestPersistence_HealthCheck(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	assert.NoError(t, fp.HealthCheck(context.Background()))

	missing := NewPersistence("/nonexistent/webpilot-data")
	assert.Error(t, missing.HealthCheck(context.Background()))
}
