package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskWritebackRetry = "crm.writeback.retry"

// WritebackRetryPayload identifies a contact update that failed synchronously
// and should be re-delivered in the background.
type WritebackRetryPayload struct {
	ContactID  string  `json:"contactId"`
	Amount     float64 `json:"amount"`
	CallbackID string  `json:"callbackId,omitempty"`
}

func NewWritebackRetryTask(payload WritebackRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWritebackRetry, data), nil
}

func ParseWritebackRetryPayload(task *asynq.Task) (WritebackRetryPayload, error) {
	var payload WritebackRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WritebackRetryPayload{}, err
	}
	return payload, nil
}
