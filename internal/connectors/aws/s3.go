package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type bucketInfo struct {
	Name    string `json:"name"`
	Created string `json:"created,omitempty"`
	Region  string `json:"region"`
}

func (c *Connector) listS3Buckets(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
	resp, err := c.clients.S3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	buckets := make([]bucketInfo, 0, len(resp.Buckets))
	for _, bucket := range resp.Buckets {
		info := bucketInfo{Name: awssdk.ToString(bucket.Name)}
		if bucket.CreationDate != nil {
			info.Created = bucket.CreationDate.UTC().Format("2006-01-02 15:04:05")
		}

		location, err := c.clients.S3.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: bucket.Name})
		switch {
		case err != nil:
			info.Region = "unknown"
		case location.LocationConstraint == "":
			// us-east-1 buckets report an empty location constraint.
			info.Region = "us-east-1"
		default:
			info.Region = string(location.LocationConstraint)
		}
		buckets = append(buckets, info)
	}

	return json.Marshal(struct {
		Count   int          `json:"count"`
		Buckets []bucketInfo `json:"buckets"`
	}{Count: len(buckets), Buckets: buckets})
}

func (c *Connector) createS3Bucket(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	in := struct {
		BucketName        string `json:"bucket_name"`
		Region            string `json:"region"`
		Versioning        bool   `json:"versioning"`
		Encryption        *bool  `json:"encryption"`
		PublicAccessBlock *bool  `json:"public_access_block"`
	}{}
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}

	region := in.Region
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	encryption := in.Encryption == nil || *in.Encryption
	publicAccessBlock := in.PublicAccessBlock == nil || *in.PublicAccessBlock

	createInput := &s3.CreateBucketInput{Bucket: awssdk.String(in.BucketName)}
	// us-east-1 rejects an explicit location constraint.
	if region != "us-east-1" {
		createInput.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}
	if _, err := c.clients.S3.CreateBucket(ctx, createInput); err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", in.BucketName, err)
	}

	if in.Versioning {
		_, err := c.clients.S3.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
			Bucket: awssdk.String(in.BucketName),
			VersioningConfiguration: &s3types.VersioningConfiguration{
				Status: s3types.BucketVersioningStatusEnabled,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("enable versioning on %s: %w", in.BucketName, err)
		}
	}

	if encryption {
		_, err := c.clients.S3.PutBucketEncryption(ctx, &s3.PutBucketEncryptionInput{
			Bucket: awssdk.String(in.BucketName),
			ServerSideEncryptionConfiguration: &s3types.ServerSideEncryptionConfiguration{
				Rules: []s3types.ServerSideEncryptionRule{
					{
						ApplyServerSideEncryptionByDefault: &s3types.ServerSideEncryptionByDefault{
							SSEAlgorithm: s3types.ServerSideEncryptionAes256,
						},
					},
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("enable encryption on %s: %w", in.BucketName, err)
		}
	}

	if publicAccessBlock {
		_, err := c.clients.S3.PutPublicAccessBlock(ctx, &s3.PutPublicAccessBlockInput{
			Bucket: awssdk.String(in.BucketName),
			PublicAccessBlockConfiguration: &s3types.PublicAccessBlockConfiguration{
				BlockPublicAcls:       awssdk.Bool(true),
				IgnorePublicAcls:      awssdk.Bool(true),
				BlockPublicPolicy:     awssdk.Bool(true),
				RestrictPublicBuckets: awssdk.Bool(true),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("block public access on %s: %w", in.BucketName, err)
		}
	}

	return json.Marshal(struct {
		Success      bool   `json:"success"`
		Message      string `json:"message"`
		BucketName   string `json:"bucket_name"`
		Region       string `json:"region"`
		Versioning   string `json:"versioning"`
		Encryption   string `json:"encryption"`
		PublicAccess string `json:"public_access"`
	}{
		Success:      true,
		Message:      fmt.Sprintf("S3 bucket %q created successfully", in.BucketName),
		BucketName:   in.BucketName,
		Region:       region,
		Versioning:   enabledOrDisabled(in.Versioning),
		Encryption:   enabledOrDisabled(encryption),
		PublicAccess: blockedOrAllowed(publicAccessBlock),
	})
}

func enabledOrDisabled(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}

func blockedOrAllowed(blocked bool) string {
	if blocked {
		return "Blocked"
	}
	return "Allowed"
}
