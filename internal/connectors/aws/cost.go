package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
)

const costDateLayout = "2006-01-02"

// topServiceCount bounds how many services the summary reports.
const topServiceCount = 10

type serviceCost struct {
	Service string  `json:"service"`
	Cost    float64 `json:"cost"`
}

func (c *Connector) getCostAnalysis(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in struct {
		StartDate     string `json:"start_date"`
		EndDate       string `json:"end_date"`
		Granularity   string `json:"granularity"`
		ServiceFilter string `json:"service_filter"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}
	if in.Granularity == "" {
		in.Granularity = "MONTHLY"
	}

	start, err := time.Parse(costDateLayout, in.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.Parse(costDateLayout, in.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date: %w", err)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("start_date %s must be before end_date %s", in.StartDate, in.EndDate)
	}

	ceInput := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: awssdk.String(in.StartDate),
			End:   awssdk.String(in.EndDate),
		},
		Granularity: cetypes.Granularity(in.Granularity),
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeDimension, Key: awssdk.String("SERVICE")},
		},
	}
	if in.ServiceFilter != "" {
		ceInput.Filter = &cetypes.Expression{
			Dimensions: &cetypes.DimensionValues{
				Key:    cetypes.DimensionService,
				Values: []string{in.ServiceFilter},
			},
		}
	}

	resp, err := c.clients.CostExplorer.GetCostAndUsage(ctx, ceInput)
	if err != nil {
		return nil, fmt.Errorf("get cost and usage: %w", err)
	}

	var totalCost float64
	byService := make(map[string]float64)
	for _, result := range resp.ResultsByTime {
		for _, group := range result.Groups {
			if len(group.Keys) == 0 {
				continue
			}
			metric, ok := group.Metrics["UnblendedCost"]
			if !ok || metric.Amount == nil {
				continue
			}
			cost, err := strconv.ParseFloat(awssdk.ToString(metric.Amount), 64)
			if err != nil {
				continue
			}
			byService[group.Keys[0]] += cost
			totalCost += cost
		}
	}

	services := make([]serviceCost, 0, len(byService))
	for service, cost := range byService {
		services = append(services, serviceCost{Service: service, Cost: cost})
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Cost > services[j].Cost })
	if len(services) > topServiceCount {
		services = services[:topServiceCount]
	}

	return json.Marshal(struct {
		StartDate   string        `json:"start_date"`
		EndDate     string        `json:"end_date"`
		Granularity string        `json:"granularity"`
		TotalCost   float64       `json:"total_cost"`
		TopServices []serviceCost `json:"top_services"`
	}{
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Granularity: in.Granularity,
		TotalCost:   totalCost,
		TopServices: services,
	})
}
