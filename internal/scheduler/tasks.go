package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskEscalationAdvance = "escalation.advance"

const TaskEvaluationRun = "evaluation.run"

const TaskExpirationSweep = "expiration.sweep"

type EscalationAdvancePayload struct {
	RequestID string `json:"requestId"`
}

type EvaluationRunPayload struct {
	RequestID      string `json:"requestId"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

type ExpirationSweepPayload struct {
	TimeoutHours int `json:"timeoutHours,omitempty"`
}

func NewEscalationAdvanceTask(payload EscalationAdvancePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEscalationAdvance, data), nil
}

func ParseEscalationAdvancePayload(task *asynq.Task) (EscalationAdvancePayload, error) {
	var payload EscalationAdvancePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EscalationAdvancePayload{}, err
	}
	return payload, nil
}

func NewEvaluationRunTask(payload EvaluationRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEvaluationRun, data), nil
}

func ParseEvaluationRunPayload(task *asynq.Task) (EvaluationRunPayload, error) {
	var payload EvaluationRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EvaluationRunPayload{}, err
	}
	return payload, nil
}

func NewExpirationSweepTask(payload ExpirationSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpirationSweep, data), nil
}

func ParseExpirationSweepPayload(task *asynq.Task) (ExpirationSweepPayload, error) {
	var payload ExpirationSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ExpirationSweepPayload{}, err
	}
	return payload, nil
}
