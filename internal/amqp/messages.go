package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"finanze/internal/core"
)

// ExportJobMessage asks a worker to run one export. The worker reads
// settings and stored data itself, so the message only names the target.
type ExportJobMessage struct {
	ID        string            `json:"id"`
	Target    core.ExportTarget `json:"target"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewExportJobMessage creates a job message with a fresh id.
func NewExportJobMessage(target core.ExportTarget) *ExportJobMessage {
	return &ExportJobMessage{
		ID:        uuid.NewString(),
		Target:    target,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportJobMessageFromJSON decodes and checks a job message. Unknown targets
// are rejected by the target's text unmarshaller.
func ExportJobMessageFromJSON(data []byte) (*ExportJobMessage, error) {
	var msg ExportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("missing job id")
	}
	return &msg, nil
}
