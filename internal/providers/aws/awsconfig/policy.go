package awsconfig

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/aws/common"
)

// PolicySource fetches one IAM policy document. Exactly one of PolicyARN
// (a managed policy, read at its default version) or RoleName (the role's
// trust policy) must be set.
type PolicySource struct {
	PolicyARN string
	RoleName  string
	Client    common.IAMClient
}

// Inputs returns a single input named iam-policy:<arn> or iam-role:<name>.
func (s PolicySource) Inputs(ctx context.Context) ([]ingest.Input, error) {
	var (
		name, encoded string
		err           error
	)
	switch {
	case s.PolicyARN != "" && s.RoleName != "":
		return nil, errors.New("policy source: set either a policy ARN or a role name, not both")
	case s.PolicyARN != "":
		name = "iam-policy:" + s.PolicyARN
		encoded, err = s.defaultVersionDocument(ctx)
	case s.RoleName != "":
		name = "iam-role:" + s.RoleName
		encoded, err = s.trustPolicy(ctx)
	default:
		return nil, errors.New("policy source: a policy ARN or role name is required")
	}
	if err != nil {
		return nil, err
	}

	// IAM returns policy documents URL-encoded (RFC 3986).
	doc, err := url.PathUnescape(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode policy document for %s: %w", name, err)
	}
	in, err := ingest.FromText(name, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return []ingest.Input{in}, nil
}

func (s PolicySource) defaultVersionDocument(ctx context.Context) (string, error) {
	pol, err := s.Client.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(s.PolicyARN)})
	if err != nil {
		return "", fmt.Errorf("get policy %s: %w", s.PolicyARN, err)
	}
	if pol.Policy == nil || pol.Policy.DefaultVersionId == nil {
		return "", fmt.Errorf("policy %s has no default version", s.PolicyARN)
	}

	ver, err := s.Client.GetPolicyVersion(ctx, &iam.GetPolicyVersionInput{
		PolicyArn: aws.String(s.PolicyARN),
		VersionId: pol.Policy.DefaultVersionId,
	})
	if err != nil {
		return "", fmt.Errorf("get policy version %s@%s: %w", s.PolicyARN, aws.ToString(pol.Policy.DefaultVersionId), err)
	}
	if ver.PolicyVersion == nil {
		return "", fmt.Errorf("policy %s returned no version", s.PolicyARN)
	}
	return aws.ToString(ver.PolicyVersion.Document), nil
}

func (s PolicySource) trustPolicy(ctx context.Context) (string, error) {
	out, err := s.Client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(s.RoleName)})
	if err != nil {
		return "", fmt.Errorf("get role %s: %w", s.RoleName, err)
	}
	if out.Role == nil {
		return "", fmt.Errorf("role %s not returned", s.RoleName)
	}
	return aws.ToString(out.Role.AssumeRolePolicyDocument), nil
}
