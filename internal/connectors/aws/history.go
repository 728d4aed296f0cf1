package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudquill/cloudquill/internal/audit"
)

type historyRecord struct {
	OperationType string    `json:"operation_type"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	DurationMS    int64     `json:"duration_ms,omitempty"`
	UserQuery     string    `json:"user_query,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
}

func (c *Connector) getOperationHistory(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in struct {
		OperationType string `json:"operation_type"`
		Status        string `json:"status"`
		Limit         int    `json:"limit"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}

	entries, err := c.recorder.History(ctx, audit.Filter{
		OperationType: in.OperationType,
		Status:        in.Status,
		Limit:         in.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("operation history: %w", err)
	}

	records := make([]historyRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, historyRecord{
			OperationType: e.OperationType,
			Status:        e.Status,
			CreatedAt:     e.CreatedAt,
			DurationMS:    e.Duration.Milliseconds(),
			UserQuery:     e.UserQuery,
			ErrorMessage:  e.ErrorMessage,
		})
	}

	return json.Marshal(struct {
		Count      int             `json:"count"`
		Operations []historyRecord `json:"operations"`
	}{Count: len(records), Operations: records})
}
