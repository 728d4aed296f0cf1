package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// ubuntuAMIOwner is Canonical's AWS account.
const ubuntuAMIOwner = "099720109477"

const ubuntuAMINamePattern = "ubuntu/images/hvm-ssd/ubuntu-jammy-22.04-amd64-server-*"

type createEC2Input struct {
	InstanceType     string   `json:"instance_type"`
	AMIID            string   `json:"ami_id"`
	KeyName          string   `json:"key_name"`
	SecurityGroupIDs []string `json:"security_group_ids"`
	SubnetID         string   `json:"subnet_id"`
	Name             string   `json:"name"`
}

type instanceInfo struct {
	InstanceID   string `json:"instance_id"`
	InstanceType string `json:"instance_type"`
	State        string `json:"state"`
	LaunchTime   string `json:"launch_time,omitempty"`
	PublicIP     string `json:"public_ip,omitempty"`
	PrivateIP    string `json:"private_ip,omitempty"`
	Name         string `json:"name,omitempty"`
}

type instanceStateChange struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	PreviousState string `json:"previous_state"`
	CurrentState  string `json:"current_state"`
}

func (c *Connector) createEC2Instance(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in createEC2Input
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}
	if in.InstanceType == "" {
		in.InstanceType = "t2.micro"
	}

	amiID := in.AMIID
	if amiID == "" {
		var err error
		amiID, err = c.latestUbuntuAMI(ctx)
		if err != nil {
			return nil, err
		}
	}

	runInput := &ec2.RunInstancesInput{
		ImageId:      awssdk.String(amiID),
		InstanceType: ec2types.InstanceType(in.InstanceType),
		MinCount:     awssdk.Int32(1),
		MaxCount:     awssdk.Int32(1),
	}
	if in.KeyName != "" {
		runInput.KeyName = awssdk.String(in.KeyName)
	}
	if len(in.SecurityGroupIDs) > 0 {
		runInput.SecurityGroupIds = in.SecurityGroupIDs
	}
	if in.SubnetID != "" {
		runInput.SubnetId = awssdk.String(in.SubnetID)
	}

	resp, err := c.clients.EC2.RunInstances(ctx, runInput)
	if err != nil {
		return nil, fmt.Errorf("run instances: %w", err)
	}
	if len(resp.Instances) == 0 {
		return nil, fmt.Errorf("run instances: no instance returned")
	}
	instanceID := awssdk.ToString(resp.Instances[0].InstanceId)

	if in.Name != "" {
		_, err := c.clients.EC2.CreateTags(ctx, &ec2.CreateTagsInput{
			Resources: []string{instanceID},
			Tags: []ec2types.Tag{
				{Key: awssdk.String("Name"), Value: awssdk.String(in.Name)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("tag instance %s: %w", instanceID, err)
		}
	}

	return json.Marshal(struct {
		Success      bool   `json:"success"`
		Message      string `json:"message"`
		InstanceID   string `json:"instance_id"`
		AMIID        string `json:"ami_id"`
		InstanceType string `json:"instance_type"`
	}{
		Success:      true,
		Message:      fmt.Sprintf("EC2 instance %s created", instanceID),
		InstanceID:   instanceID,
		AMIID:        amiID,
		InstanceType: in.InstanceType,
	})
}

// latestUbuntuAMI resolves the most recently published Ubuntu 22.04
// server image from Canonical.
func (c *Connector) latestUbuntuAMI(ctx context.Context) (string, error) {
	resp, err := c.clients.EC2.DescribeImages(ctx, &ec2.DescribeImagesInput{
		Owners: []string{ubuntuAMIOwner},
		Filters: []ec2types.Filter{
			{Name: awssdk.String("name"), Values: []string{ubuntuAMINamePattern}},
			{Name: awssdk.String("state"), Values: []string{"available"}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("describe images: %w", err)
	}
	if len(resp.Images) == 0 {
		return "", fmt.Errorf("no ubuntu AMI found")
	}

	images := resp.Images
	sort.Slice(images, func(i, j int) bool {
		return awssdk.ToString(images[i].CreationDate) > awssdk.ToString(images[j].CreationDate)
	})
	return awssdk.ToString(images[0].ImageId), nil
}

func (c *Connector) listEC2Instances(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in struct {
		StateFilter string            `json:"state_filter"`
		TagFilters  map[string]string `json:"tag_filters"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}

	var filters []ec2types.Filter
	if in.StateFilter != "" {
		filters = append(filters, ec2types.Filter{
			Name:   awssdk.String("instance-state-name"),
			Values: []string{in.StateFilter},
		})
	}
	for key, value := range in.TagFilters {
		filters = append(filters, ec2types.Filter{
			Name:   awssdk.String("tag:" + key),
			Values: []string{value},
		})
	}

	resp, err := c.clients.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("describe instances: %w", err)
	}

	var instances []instanceInfo
	for _, reservation := range resp.Reservations {
		for _, instance := range reservation.Instances {
			info := instanceInfo{
				InstanceID:   awssdk.ToString(instance.InstanceId),
				InstanceType: string(instance.InstanceType),
				State:        stateName(instance.State),
				PublicIP:     awssdk.ToString(instance.PublicIpAddress),
				PrivateIP:    awssdk.ToString(instance.PrivateIpAddress),
			}
			if instance.LaunchTime != nil {
				info.LaunchTime = instance.LaunchTime.UTC().Format("2006-01-02T15:04:05Z")
			}
			for _, tag := range instance.Tags {
				if awssdk.ToString(tag.Key) == "Name" {
					info.Name = awssdk.ToString(tag.Value)
				}
			}
			instances = append(instances, info)
		}
	}

	return json.Marshal(struct {
		Count     int            `json:"count"`
		Instances []instanceInfo `json:"instances"`
	}{Count: len(instances), Instances: instances})
}

func (c *Connector) stopEC2Instance(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	instanceID, err := parseInstanceID(input)
	if err != nil {
		return nil, err
	}

	resp, err := c.clients.EC2.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return nil, fmt.Errorf("stop instance %s: %w", instanceID, err)
	}
	if len(resp.StoppingInstances) == 0 {
		return nil, fmt.Errorf("stop instance %s: no state change returned", instanceID)
	}

	change := resp.StoppingInstances[0]
	return json.Marshal(instanceStateChange{
		Success:       true,
		Message:       fmt.Sprintf("EC2 instance %s stop initiated", instanceID),
		PreviousState: stateName(change.PreviousState),
		CurrentState:  stateName(change.CurrentState),
	})
}

func (c *Connector) startEC2Instance(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	instanceID, err := parseInstanceID(input)
	if err != nil {
		return nil, err
	}

	resp, err := c.clients.EC2.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return nil, fmt.Errorf("start instance %s: %w", instanceID, err)
	}
	if len(resp.StartingInstances) == 0 {
		return nil, fmt.Errorf("start instance %s: no state change returned", instanceID)
	}

	change := resp.StartingInstances[0]
	return json.Marshal(instanceStateChange{
		Success:       true,
		Message:       fmt.Sprintf("EC2 instance %s start initiated", instanceID),
		PreviousState: stateName(change.PreviousState),
		CurrentState:  stateName(change.CurrentState),
	})
}

func (c *Connector) terminateEC2Instance(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	instanceID, err := parseInstanceID(input)
	if err != nil {
		return nil, err
	}

	resp, err := c.clients.EC2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return nil, fmt.Errorf("terminate instance %s: %w", instanceID, err)
	}
	if len(resp.TerminatingInstances) == 0 {
		return nil, fmt.Errorf("terminate instance %s: no state change returned", instanceID)
	}

	change := resp.TerminatingInstances[0]
	return json.Marshal(instanceStateChange{
		Success:       true,
		Message:       fmt.Sprintf("EC2 instance %s termination initiated", instanceID),
		PreviousState: stateName(change.PreviousState),
		CurrentState:  stateName(change.CurrentState),
	})
}

// stateName reads an instance state that the SDK may leave unset.
func stateName(state *ec2types.InstanceState) string {
	if state == nil {
		return ""
	}
	return string(state.Name)
}

func parseInstanceID(input json.RawMessage) (string, error) {
	var in struct {
		InstanceID string `json:"instance_id"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	return in.InstanceID, nil
}
