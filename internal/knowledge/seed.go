package knowledge

type seedDoc struct {
	id       string
	text     string
	metadata map[string]string
}

// seedCorpus is the built-in AWS documentation corpus loaded into empty
// stores.
var seedCorpus = []seedDoc{
	{
		id:       "ec2_basics",
		text:     "Amazon EC2 (Elastic Compute Cloud) provides scalable computing capacity. Common instance types include: t2.micro (1 vCPU, 1 GB RAM, free tier eligible), t3.medium (2 vCPUs, 4 GB RAM), m5.large (2 vCPUs, 8 GB RAM). Best practices: use Auto Scaling Groups for high availability, enable detailed monitoring, use appropriate instance types for workload.",
		metadata: map[string]string{"service": "ec2", "topic": "basics"},
	},
	{
		id:       "s3_basics",
		text:     "Amazon S3 (Simple Storage Service) provides object storage. Storage classes: Standard (frequent access), Standard-IA (infrequent access), Glacier (archival). Best practices: enable versioning for critical data, use lifecycle policies to optimize costs, enable server-side encryption, implement least-privilege bucket policies.",
		metadata: map[string]string{"service": "s3", "topic": "basics"},
	},
	{
		id:       "cost_optimization",
		text:     "AWS Cost Optimization strategies: 1) Use Reserved Instances for predictable workloads (up to 75% savings), 2) Enable AWS Cost Explorer for visibility, 3) Set up billing alerts, 4) Use Spot Instances for fault-tolerant workloads, 5) Right-size instances regularly, 6) Delete unattached EBS volumes, 7) Use S3 lifecycle policies.",
		metadata: map[string]string{"service": "general", "topic": "cost"},
	},
	{
		id:       "security_best_practices",
		text:     "AWS Security Best Practices: 1) Enable MFA on root account, 2) Use IAM roles instead of access keys, 3) Enable CloudTrail for audit logging, 4) Use VPC for network isolation, 5) Encrypt data at rest and in transit, 6) Regular security assessments with AWS Inspector, 7) Implement least privilege access.",
		metadata: map[string]string{"service": "general", "topic": "security"},
	},
	{
		id:       "vpc_networking",
		text:     "Amazon VPC (Virtual Private Cloud) allows you to launch AWS resources in a logically isolated virtual network. Key concepts: Subnets (public/private), Route Tables, Internet Gateway, NAT Gateway, Security Groups (instance-level firewall), NACLs (subnet-level firewall). Best practice: use multiple Availability Zones for high availability.",
		metadata: map[string]string{"service": "vpc", "topic": "networking"},
	},
	{
		id:       "lambda_basics",
		text:     "AWS Lambda lets you run code without provisioning servers. Key features: automatic scaling, pay per request, supports multiple languages. Best practices: keep functions small and focused, use environment variables for configuration, implement proper error handling, monitor with CloudWatch.",
		metadata: map[string]string{"service": "lambda", "topic": "basics"},
	},
	{
		id:       "rds_basics",
		text:     "Amazon RDS (Relational Database Service) provides managed database instances. Supports MySQL, PostgreSQL, Oracle, SQL Server, MariaDB, and Aurora. Features: automated backups, Multi-AZ deployments for high availability, read replicas for scalability, automated patching.",
		metadata: map[string]string{"service": "rds", "topic": "basics"},
	},
}
