package aws

// Tool input schemas. These are advertised to the model in the prompt
// and enforced before any SDK call is made.

const createEC2InstanceSchema = `{
	"type": "object",
	"properties": {
		"instance_type": {
			"type": "string",
			"description": "EC2 instance type",
			"enum": ["t2.micro", "t2.small", "t2.medium", "t3.micro", "t3.small", "t3.medium", "t3.large", "m5.large", "m5.xlarge", "c5.large", "c5.xlarge"],
			"default": "t2.micro"
		},
		"ami_id": {
			"type": "string",
			"description": "AMI ID; defaults to the latest Ubuntu 22.04 server image",
			"pattern": "^ami-[0-9a-f]+$"
		},
		"key_name": {"type": "string", "description": "SSH key pair name"},
		"security_group_ids": {
			"type": "array",
			"items": {"type": "string", "pattern": "^sg-[0-9a-f]+$"}
		},
		"subnet_id": {"type": "string", "pattern": "^subnet-[0-9a-f]+$"},
		"name": {"type": "string", "description": "Name tag for the instance"}
	},
	"additionalProperties": false
}`

const listEC2InstancesSchema = `{
	"type": "object",
	"properties": {
		"state_filter": {
			"type": "string",
			"enum": ["pending", "running", "shutting-down", "terminated", "stopping", "stopped"]
		},
		"tag_filters": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		}
	},
	"additionalProperties": false
}`

const instanceIDSchema = `{
	"type": "object",
	"properties": {
		"instance_id": {"type": "string", "pattern": "^i-[0-9a-f]+$"}
	},
	"required": ["instance_id"],
	"additionalProperties": false
}`

const listS3BucketsSchema = `{
	"type": "object",
	"properties": {},
	"additionalProperties": false
}`

const createS3BucketSchema = `{
	"type": "object",
	"properties": {
		"bucket_name": {
			"type": "string",
			"pattern": "^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$"
		},
		"region": {"type": "string"},
		"versioning": {"type": "boolean", "default": false},
		"encryption": {"type": "boolean", "default": true},
		"public_access_block": {"type": "boolean", "default": true}
	},
	"required": ["bucket_name"],
	"additionalProperties": false
}`

const getCostAnalysisSchema = `{
	"type": "object",
	"properties": {
		"start_date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"end_date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"granularity": {
			"type": "string",
			"enum": ["DAILY", "MONTHLY", "HOURLY"],
			"default": "MONTHLY"
		},
		"service_filter": {"type": "string"}
	},
	"required": ["start_date", "end_date"],
	"additionalProperties": false
}`

const serviceStatusSchema = `{
	"type": "object",
	"properties": {
		"services": {
			"type": "array",
			"items": {"type": "string"}
		}
	},
	"additionalProperties": false
}`

const operationHistorySchema = `{
	"type": "object",
	"properties": {
		"operation_type": {"type": "string"},
		"status": {"type": "string", "enum": ["success", "error"]},
		"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 10}
	},
	"additionalProperties": false
}`
