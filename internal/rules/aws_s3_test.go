package rules

import (
	"testing"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

const publicBucket = `{
  "Bucket": "media-files",
  "ACL": "public-read",
  "Policy": {
    "Version": "2012-10-17",
    "Statement": [{"Effect": "Allow", "Principal": "*", "Action": "s3:GetObject", "Resource": "arn:aws:s3:::media-files/*"}]
  },
  "Versioning": {"Status": "Suspended"},
  "CORSRules": [{"AllowedOrigins": ["*"], "AllowedMethods": ["GET"]}]
}`

const hardenedBucket = `{
  "Bucket": "media-files",
  "ServerSideEncryptionConfiguration": {"Rules": [{"ApplyServerSideEncryptionByDefault": {"SSEAlgorithm": "aws:kms"}}]},
  "Versioning": {"Status": "Enabled"},
  "LoggingEnabled": {"TargetBucket": "access-logs"}
}`

func TestAWSS3Rules_PublicBucket(t *testing.T) {
	findings := evalGroup(AWSS3Rules(), models.ConfigTypeAWSS3, publicBucket, nil)
	assertExactly(t, findings,
		"S3_PUBLIC_ACCESS",
		"S3_PUBLIC_PRINCIPAL",
		"S3_ENCRYPTION_DISABLED",
		"S3_VERSIONING_DISABLED",
		"S3_CORS_PERMISSIVE",
		"S3_NO_CONDITION",
		"S3_LOGGING_DISABLED",
	)
	for _, f := range findings {
		if f.Domain != DomainAWSS3 {
			t.Errorf("%s: domain %q; want %q", f.RuleID, f.Domain, DomainAWSS3)
		}
	}
}

func TestAWSS3Rules_HardenedBucket(t *testing.T) {
	findings := evalGroup(AWSS3Rules(), models.ConfigTypeAWSS3, hardenedBucket, nil)
	if len(findings) != 0 {
		t.Errorf("want 0 findings for hardened bucket, got %v", ruleIDs(findings))
	}
}

func TestAWSS3Rules_EmptyEncryptionBlock(t *testing.T) {
	findings := evalGroup(AWSS3Rules(), models.ConfigTypeAWSS3,
		`{"Bucket":"b","ServerSideEncryptionConfiguration":{},"Versioning":{"Status":"Enabled"},"LoggingEnabled":{}}`, nil)
	assertExactly(t, findings, "S3_ENCRYPTION_DISABLED")
}

func TestAWSS3Rules_NestedPrincipalForms(t *testing.T) {
	for _, doc := range []string{
		`{"Statement":[{"Principal":{"AWS":"*"},"Resource":"arn:aws:s3:::b"}]}`,
		`{"Statement":[{"Principal":{"AWS":["*"]},"Resource":"arn:aws:s3:::b"}]}`,
		`{"Statement":[{"Principal":{"*":"x"},"Resource":"arn:aws:s3:::b"}]}`,
	} {
		findings := evalGroup(AWSS3Rules(), models.ConfigTypeUnknown, doc, nil)
		assertFired(t, findings, "S3_PUBLIC_PRINCIPAL")
	}
}

func TestAWSS3Rules_OpenIPRange(t *testing.T) {
	doc := `{"Bucket":"b","Condition":{"IpAddress":{"aws:SourceIp":"0.0.0.0/0"}}}`
	findings := evalGroup(AWSS3Rules(), models.ConfigTypeAWSS3, doc, nil)
	assertFired(t, findings, "S3_OPEN_IP_RANGE")
}

func TestAWSS3Rules_ConditionSuppressesNoCondition(t *testing.T) {
	doc := `{"Statement":[{"Effect":"Allow","Principal":"*","Resource":"arn:aws:s3:::b/*",
	  "Condition":{"IpAddress":{"aws:SourceIp":"10.0.0.0/8"}}}]}`
	findings := evalGroup(AWSS3Rules(), models.ConfigTypeUnknown, doc, nil)
	assertFired(t, findings, "S3_PUBLIC_PRINCIPAL")
	assertNotFired(t, findings, "S3_NO_CONDITION")
}

func TestAWSS3Rules_OutOfScope(t *testing.T) {
	// No S3 signature and not classified as aws-s3.
	findings := evalGroup(AWSS3Rules(), models.ConfigTypeUnknown, `{"Bucket":"media","ACL":"public-read"}`, nil)
	if len(findings) != 0 {
		t.Errorf("want 0 findings out of scope, got %v", ruleIDs(findings))
	}
}

func TestAWSS3Rules_RawDocumentSkipped(t *testing.T) {
	findings := evalGroup(AWSS3Rules(), models.ConfigTypeAWSS3, "s3 bucket is public-read for Bucket", nil)
	if len(findings) != 0 {
		t.Errorf("structured-only group must skip raw text, got %v", ruleIDs(findings))
	}
}
