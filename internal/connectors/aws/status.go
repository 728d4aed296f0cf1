package aws

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/health"
	healthtypes "github.com/aws/aws-sdk-go-v2/service/health/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// defaultStatusServices are checked when the caller names none.
var defaultStatusServices = []string{"ec2", "s3", "rds", "lambda", "dynamodb"}

// maxEventsPerService bounds how many events are reported per service.
const maxEventsPerService = 3

type serviceStatus struct {
	Service    string        `json:"service"`
	Status     string        `json:"status"`
	EventCount int           `json:"event_count"`
	Events     []healthEvent `json:"events,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type healthEvent struct {
	EventTypeCode string `json:"event_type_code"`
	Region        string `json:"region"`
}

type accountInfo struct {
	AccountID string `json:"account_id"`
	UserARN   string `json:"user_arn"`
}

func (c *Connector) getServiceStatus(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in struct {
		Services []string `json:"services"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}
	services := in.Services
	if len(services) == 0 {
		services = defaultStatusServices
	}

	statuses := make([]serviceStatus, 0, len(services))
	for _, service := range services {
		status := serviceStatus{Service: service}

		resp, err := c.clients.Health.DescribeEvents(ctx, &health.DescribeEventsInput{
			Filter: &healthtypes.EventFilter{
				Services:         []string{service},
				EventStatusCodes: []healthtypes.EventStatusCode{healthtypes.EventStatusCodeOpen, healthtypes.EventStatusCodeUpcoming},
			},
		})
		if err != nil {
			status.Status = "unknown"
			status.Error = err.Error()
			statuses = append(statuses, status)
			continue
		}

		status.EventCount = len(resp.Events)
		if len(resp.Events) == 0 {
			status.Status = "operational"
		} else {
			status.Status = "degraded"
			for i, event := range resp.Events {
				if i == maxEventsPerService {
					break
				}
				region := awssdk.ToString(event.Region)
				if region == "" {
					region = "global"
				}
				status.Events = append(status.Events, healthEvent{
					EventTypeCode: awssdk.ToString(event.EventTypeCode),
					Region:        region,
				})
			}
		}
		statuses = append(statuses, status)
	}

	out := struct {
		Services []serviceStatus `json:"services"`
		Account  *accountInfo    `json:"account,omitempty"`
	}{Services: statuses}

	identity, err := c.clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		c.logger.Warn(ctx, "failed to resolve caller identity", "error", err)
	} else {
		out.Account = &accountInfo{
			AccountID: awssdk.ToString(identity.Account),
			UserARN:   awssdk.ToString(identity.Arn),
		}
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode service status: %w", err)
	}
	return raw, nil
}
