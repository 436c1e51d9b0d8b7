// Package events defines the run lifecycle notifications published while a
// plan executes.
package events

import (
	"time"

	"github.com/webpilot/webpilot/pkg/models"
)

type EventType string

const Topic = "webpilot.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent   EventType = "run.started"
	RunFinishedEvent  EventType = "run.finished"
	StepFinishedEvent EventType = "step.finished"
	StepFailedEvent   EventType = "step.failed"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	PlanID    string    `json:"plan_id"`
}

type RunStarted struct {
	BaseEvent

	PlanName   string `json:"plan_name"`
	TotalSteps int    `json:"total_steps"`
	TargetURL  string `json:"target_url,omitempty"`
}

func (e RunStarted) GetType() EventType { return RunStartedEvent }

type RunFinished struct {
	BaseEvent

	Status      models.RunStatus `json:"status"`
	Completed   int              `json:"completed"`
	Failed      int              `json:"failed"`
	SuccessRate float64          `json:"success_rate"`
	Duration    time.Duration    `json:"duration"`
}

func (e RunFinished) GetType() EventType { return RunFinishedEvent }

type StepFinished struct {
	BaseEvent

	StepID   string          `json:"step_id"`
	StepName string          `json:"step_name"`
	Kind     models.StepKind `json:"kind"`
	Attempts int             `json:"attempts"`
}

func (e StepFinished) GetType() EventType { return StepFinishedEvent }

type StepFailed struct {
	BaseEvent

	StepID   string          `json:"step_id"`
	StepName string          `json:"step_name"`
	Kind     models.StepKind `json:"kind"`
	Attempts int             `json:"attempts"`
	Error    string          `json:"error,omitempty"`
	Critical bool            `json:"critical"`
}

func (e StepFailed) GetType() EventType { return StepFailedEvent }
