package models

// ConfigType identifies the configuration dialect of an input document.
type ConfigType string

const (
	ConfigTypeAWSIAM  ConfigType = "aws-iam"
	ConfigTypeAWSS3   ConfigType = "aws-s3"
	ConfigTypeGCP     ConfigType = "gcp"
	ConfigTypeAzure   ConfigType = "azure"
	ConfigTypeUnknown ConfigType = "unknown"
)

// String implements fmt.Stringer.
func (t ConfigType) String() string {
	if t == "" {
		return string(ConfigTypeUnknown)
	}
	return string(t)
}
