// Package awsconfig fetches live AWS resource configuration and turns it
// into scanner inputs shaped like the documents users paste by hand.
package awsconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/normalize"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/aws/common"
)

// Error codes S3 returns when a bucket sub-configuration was never set.
var notConfiguredCodes = map[string]bool{
	"NoSuchBucketPolicy":                             true,
	"ServerSideEncryptionConfigurationNotFoundError": true,
	"NoSuchCORSConfiguration":                        true,
}

// BucketSource snapshots one S3 bucket's configuration.
type BucketSource struct {
	Bucket string
	Client common.S3Client
}

// Inputs returns a single input named s3://<bucket>. Sub-configurations the
// bucket does not have are left out of the document.
func (s BucketSource) Inputs(ctx context.Context) ([]ingest.Input, error) {
	doc, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	data, err := normalize.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode bucket %s: %w", s.Bucket, err)
	}
	in, err := ingest.FromText("s3://"+s.Bucket, string(data))
	if err != nil {
		return nil, err
	}
	return []ingest.Input{in}, nil
}

func (s BucketSource) snapshot(ctx context.Context) (*normalize.Object, error) {
	bucket := aws.String(s.Bucket)
	doc := normalize.NewObject()
	doc.Set("Bucket", s.Bucket)

	pol, err := s.Client.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: bucket})
	if err := fetchErr("policy", s.Bucket, err); err != nil {
		return nil, err
	}
	if pol != nil && aws.ToString(pol.Policy) != "" {
		doc.Set("Policy", embedPolicy(aws.ToString(pol.Policy)))
	}

	ver, err := s.Client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: bucket})
	if err := fetchErr("versioning", s.Bucket, err); err != nil {
		return nil, err
	}
	if ver != nil && ver.Status != "" {
		v := normalize.NewObject()
		v.Set("Status", string(ver.Status))
		if ver.MFADelete != "" {
			v.Set("MFADelete", string(ver.MFADelete))
		}
		doc.Set("Versioning", v)
	}

	enc, err := s.Client.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: bucket})
	if err := fetchErr("encryption", s.Bucket, err); err != nil {
		return nil, err
	}
	if enc != nil && enc.ServerSideEncryptionConfiguration != nil {
		doc.Set("ServerSideEncryptionConfiguration", encryptionObject(enc.ServerSideEncryptionConfiguration))
	}

	logging, err := s.Client.GetBucketLogging(ctx, &s3.GetBucketLoggingInput{Bucket: bucket})
	if err := fetchErr("logging", s.Bucket, err); err != nil {
		return nil, err
	}
	if logging != nil && logging.LoggingEnabled != nil {
		l := normalize.NewObject()
		l.Set("TargetBucket", aws.ToString(logging.LoggingEnabled.TargetBucket))
		l.Set("TargetPrefix", aws.ToString(logging.LoggingEnabled.TargetPrefix))
		doc.Set("LoggingEnabled", l)
	}

	cors, err := s.Client.GetBucketCors(ctx, &s3.GetBucketCorsInput{Bucket: bucket})
	if err := fetchErr("cors", s.Bucket, err); err != nil {
		return nil, err
	}
	if cors != nil && len(cors.CORSRules) > 0 {
		doc.Set("CORSRules", corsRules(cors.CORSRules))
	}

	return doc, nil
}

// fetchErr drops the "never configured" errors and wraps the rest.
func fetchErr(what, bucket string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && notConfiguredCodes[apiErr.ErrorCode()] {
		return nil
	}
	return fmt.Errorf("get bucket %s for %s: %w", what, bucket, err)
}

// embedPolicy decodes the policy so it is matched as part of the document;
// an unparseable policy is kept as a string.
func embedPolicy(text string) any {
	if v, err := normalize.ParseJSON(text); err == nil {
		return v
	}
	return text
}

func encryptionObject(cfg *s3types.ServerSideEncryptionConfiguration) *normalize.Object {
	rules := make([]any, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rule := normalize.NewObject()
		if d := r.ApplyServerSideEncryptionByDefault; d != nil {
			def := normalize.NewObject()
			def.Set("SSEAlgorithm", string(d.SSEAlgorithm))
			if d.KMSMasterKeyID != nil {
				def.Set("KMSMasterKeyID", aws.ToString(d.KMSMasterKeyID))
			}
			rule.Set("ApplyServerSideEncryptionByDefault", def)
		}
		if r.BucketKeyEnabled != nil {
			rule.Set("BucketKeyEnabled", aws.ToBool(r.BucketKeyEnabled))
		}
		rules = append(rules, rule)
	}
	obj := normalize.NewObject()
	obj.Set("Rules", rules)
	return obj
}

func corsRules(in []s3types.CORSRule) []any {
	out := make([]any, 0, len(in))
	for _, r := range in {
		rule := normalize.NewObject()
		rule.Set("AllowedOrigins", stringsToAny(r.AllowedOrigins))
		rule.Set("AllowedMethods", stringsToAny(r.AllowedMethods))
		if len(r.AllowedHeaders) > 0 {
			rule.Set("AllowedHeaders", stringsToAny(r.AllowedHeaders))
		}
		out = append(out, rule)
	}
	return out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
