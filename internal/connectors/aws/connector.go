// Package aws implements the AWS backend connector: EC2 lifecycle, S3
// buckets, cost analysis, service health and the operation history, all
// behind the connector boundary with schema-validated inputs.
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/cloudquill/cloudquill/internal/audit"
	"github.com/cloudquill/cloudquill/internal/connectors"
	"github.com/cloudquill/cloudquill/internal/observability"
	"github.com/cloudquill/cloudquill/pkg/models"
)

// ConnectorName identifies this connector in the tool catalog.
const ConnectorName = "aws"

// Recorder is the audit surface the connector writes to and the
// operation history tool reads from.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
	History(ctx context.Context, f audit.Filter) ([]audit.Entry, error)
}

var _ Recorder = (*audit.Store)(nil)

type handlerFunc func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

type tool struct {
	name        string
	description string
	rawSchema   json.RawMessage
	schema      *jsonschema.Schema
	handler     handlerFunc
}

// Connector routes tool invocations to AWS service clients.
type Connector struct {
	clients  *Clients
	recorder Recorder
	logger   *observability.Logger
	clock    func() time.Time

	tools map[string]*tool
	order []string
}

// ConnectorConfig configures the connector.
type ConnectorConfig struct {
	Clients  *Clients
	Recorder Recorder
	Logger   *observability.Logger
}

var _ connectors.Connector = (*Connector)(nil)

// New creates the AWS connector. Clients and Recorder are required.
func New(cfg ConnectorConfig) (*Connector, error) {
	if cfg.Clients == nil {
		return nil, fmt.Errorf("aws connector: clients are required")
	}
	if cfg.Recorder == nil {
		return nil, fmt.Errorf("aws connector: recorder is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	c := &Connector{
		clients:  cfg.Clients,
		recorder: cfg.Recorder,
		logger:   logger,
		clock:    time.Now,
		tools:    make(map[string]*tool),
	}

	specs := []struct {
		name        string
		description string
		schema      string
		handler     handlerFunc
	}{
		{"create_ec2_instance", "Create an EC2 instance. Defaults to the latest Ubuntu 22.04 AMI when ami_id is omitted.", createEC2InstanceSchema, c.createEC2Instance},
		{"list_ec2_instances", "List EC2 instances, optionally filtered by state and tags.", listEC2InstancesSchema, c.listEC2Instances},
		{"stop_ec2_instance", "Stop a running EC2 instance by instance_id.", instanceIDSchema, c.stopEC2Instance},
		{"start_ec2_instance", "Start a stopped EC2 instance by instance_id.", instanceIDSchema, c.startEC2Instance},
		{"terminate_ec2_instance", "Terminate an EC2 instance by instance_id. This is irreversible.", instanceIDSchema, c.terminateEC2Instance},
		{"list_s3_buckets", "List all S3 buckets with creation date and region.", listS3BucketsSchema, c.listS3Buckets},
		{"create_s3_bucket", "Create an S3 bucket with optional versioning, encryption and public access block.", createS3BucketSchema, c.createS3Bucket},
		{"get_cost_analysis", "Get AWS cost analysis between start_date and end_date, grouped by service.", getCostAnalysisSchema, c.getCostAnalysis},
		{"get_aws_service_status", "Check AWS Health events for the given services and report the caller identity.", serviceStatusSchema, c.getServiceStatus},
		{"get_operation_history", "Get the history of operations performed through this service.", operationHistorySchema, c.getOperationHistory},
	}

	for _, spec := range specs {
		compiled, err := jsonschema.CompileString(spec.name+".json", spec.schema)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", spec.name, err)
		}
		c.tools[spec.name] = &tool{
			name:        spec.name,
			description: spec.description,
			rawSchema:   json.RawMessage(spec.schema),
			schema:      compiled,
			handler:     spec.handler,
		}
		c.order = append(c.order, spec.name)
	}
	return c, nil
}

// Name returns the connector name.
func (c *Connector) Name() string {
	return ConnectorName
}

// ListTools returns descriptors for every tool this connector serves.
func (c *Connector) ListTools(_ context.Context) ([]models.ToolDescriptor, error) {
	out := make([]models.ToolDescriptor, 0, len(c.order))
	for _, name := range c.order {
		t := c.tools[name]
		out = append(out, models.ToolDescriptor{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.rawSchema,
		})
	}
	return out, nil
}

// Execute validates the input against the tool's schema, runs the
// operation and records it in the audit log.
func (c *Connector) Execute(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	t, ok := c.tools[name]
	if !ok {
		return nil, fmt.Errorf("unsupported tool: %s", name)
	}

	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(input, &decoded); err != nil {
		return nil, fmt.Errorf("invalid input for %s: %w", name, err)
	}
	if err := t.schema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("input validation failed for %s: %w", name, err)
	}

	start := c.clock()
	result, err := t.handler(ctx, input)
	duration := c.clock().Sub(start)

	entry := audit.Entry{
		OperationType: name,
		Parameters:    input,
		Duration:      duration,
	}
	if err != nil {
		entry.Status = "error"
		entry.ErrorMessage = err.Error()
	} else {
		entry.Status = "success"
		entry.Result = result
	}
	if recordErr := c.recorder.Record(ctx, entry); recordErr != nil {
		c.logger.Warn(ctx, "failed to record operation", "tool", name, "error", recordErr)
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}
