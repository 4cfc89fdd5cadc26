package workflow

import "encoding/json"

// activityTask is the queue payload for one activity attempt.
type activityTask struct {
	WorkflowID string          `json:"workflowId"`
	TenantID   string          `json:"tenantId"`
	StepIndex  int             `json:"stepIndex"`
	Activity   string          `json:"activity"`
	Input      json.RawMessage `json:"input,omitempty"`
	Attempt    int             `json:"attempt"`
	TimeoutMs  int64           `json:"timeoutMs"`
}

func (t *activityTask) encode() ([]byte, error) { return json.Marshal(t) }

func decodeActivityTask(b []byte) (activityTask, error) {
	var t activityTask
	err := json.Unmarshal(b, &t)
	return t, err
}
