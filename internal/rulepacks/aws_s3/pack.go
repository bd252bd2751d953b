// Package aws_s3 provides the S3 bucket configuration rule pack.
//
// Convention: every rule pack lives in internal/rulepacks/<domain>/pack.go
// and exposes a single New() func returning []rules.Rule. The directory name
// is the policy domain name.
package aws_s3

import "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rules"

// New returns the S3 rule pack: public ACLs and principals, open IP ranges,
// missing encryption, versioning and logging, permissive CORS.
func New() []rules.Rule {
	return rules.AWSS3Rules()
}
