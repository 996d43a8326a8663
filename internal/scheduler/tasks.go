// Package scheduler provides background job scheduling and processing on
// top of asynq.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRecalculateAll = "leadscoring.recalculate_all"

const TaskRecalculateContact = "leadscoring.contact.recalculate"

type RecalculateContactPayload struct {
	TenantID  string `json:"tenantId"`
	ContactID string `json:"contactId"`
}

func NewRecalculateAllTask() *asynq.Task {
	return asynq.NewTask(TaskRecalculateAll, nil)
}

func NewRecalculateContactTask(payload RecalculateContactPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecalculateContact, data), nil
}

func ParseRecalculateContactPayload(task *asynq.Task) (RecalculateContactPayload, error) {
	var payload RecalculateContactPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RecalculateContactPayload{}, err
	}
	return payload, nil
}
