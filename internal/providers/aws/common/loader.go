package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"gopkg.in/ini.v1"
)

// DefaultRegion is used when neither the profile nor the provider names one.
const DefaultRegion = "us-east-1"

// DefaultAWSClientProvider is the production implementation of
// AWSClientProvider. It reads credentials from the standard AWS shared config
// and credentials files using the AWS SDK v2.
//
// Inject a custom ClientFactory via NewDefaultAWSClientProviderWithFactory to
// replace real SDK clients with fakes in unit tests.
type DefaultAWSClientProvider struct {
	factory ClientFactory
	region  string
}

// NewDefaultAWSClientProvider returns a provider backed by the real AWS SDK.
func NewDefaultAWSClientProvider() *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: NewClientSet}
}

// NewDefaultAWSClientProviderWithFactory returns a provider that uses f to
// create its ClientSet.
func NewDefaultAWSClientProviderWithFactory(f ClientFactory) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: f}
}

// WithRegion returns a copy of p that falls back to region, instead of
// DefaultRegion, for profiles without a configured region.
func (p *DefaultAWSClientProvider) WithRegion(region string) *DefaultAWSClientProvider {
	cp := *p
	cp.region = region
	return &cp
}

// LoadProfile loads the AWS SDK config for the named profile and returns a
// fully populated ProfileConfig including the resolved account ID and
// initialised service clients.
//
// Pass an empty string to load the default profile.
func (p *DefaultAWSClientProvider) LoadProfile(ctx context.Context, profile string) (*ProfileConfig, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS profile %q: %w", profileDisplayName(profile), err)
	}

	if cfg.Region == "" {
		cfg.Region = p.fallbackRegion()
	}

	clients := p.factory(cfg)

	accountID, err := resolveAccountID(ctx, clients.STS)
	if err != nil {
		return nil, fmt.Errorf("resolve account ID for profile %q: %w", profileDisplayName(profile), err)
	}

	return &ProfileConfig{
		ProfileName: profileDisplayName(profile),
		AccountID:   accountID,
		Region:      cfg.Region,
		Config:      cfg,
		Clients:     clients,
	}, nil
}

// LoadAllProfiles discovers every profile defined in the shared credentials
// and config files, loads each one, and returns the successfully loaded set.
// Profiles that cannot be loaded are skipped so one bad profile does not
// block the rest.
func (p *DefaultAWSClientProvider) LoadAllProfiles(ctx context.Context) ([]*ProfileConfig, error) {
	names, err := DiscoverProfileNames()
	if err != nil {
		return nil, fmt.Errorf("discover AWS profiles: %w", err)
	}

	var profiles []*ProfileConfig
	for _, name := range names {
		arg := ""
		if name != "default" {
			arg = name
		}

		pc, loadErr := p.LoadProfile(ctx, arg)
		if loadErr != nil {
			continue
		}
		profiles = append(profiles, pc)
	}

	return profiles, nil
}

// ConfigForRegion returns a copy of cfg.Config with Region set to region.
func (p *DefaultAWSClientProvider) ConfigForRegion(cfg *ProfileConfig, region string) aws.Config {
	regional := cfg.Config
	regional.Region = region
	return regional
}

// ClientsForRegion builds a ClientSet scoped to region with the provider's
// factory. S3 bucket reads must target the bucket's home region.
func (p *DefaultAWSClientProvider) ClientsForRegion(cfg *ProfileConfig, region string) *ClientSet {
	if region == "" || region == cfg.Region {
		return cfg.Clients
	}
	return p.factory(p.ConfigForRegion(cfg, region))
}

func (p *DefaultAWSClientProvider) fallbackRegion() string {
	if p.region != "" {
		return p.region
	}
	return DefaultRegion
}

// profileDisplayName returns a human-readable profile identifier. An empty
// string (the default profile) is shown as "default".
func profileDisplayName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

// resolveAccountID calls STS GetCallerIdentity to retrieve the numeric AWS
// account ID for the credentials currently loaded in stsClient.
func resolveAccountID(ctx context.Context, stsClient STSClient) (string, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if out.Account == nil {
		return "", errors.New("STS GetCallerIdentity returned nil account")
	}
	return aws.ToString(out.Account), nil
}

// DiscoverProfileNames returns the deduplicated profile names found in the
// shared credentials and config files. AWS_SHARED_CREDENTIALS_FILE and
// AWS_CONFIG_FILE override the default locations under ~/.aws.
func DiscoverProfileNames() ([]string, error) {
	credPath := os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	cfgPath := os.Getenv("AWS_CONFIG_FILE")
	if credPath == "" || cfgPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		if credPath == "" {
			credPath = filepath.Join(home, ".aws", "credentials")
		}
		if cfgPath == "" {
			cfgPath = filepath.Join(home, ".aws", "config")
		}
	}
	return profileNamesFromFiles(credPath, cfgPath)
}

func profileNamesFromFiles(credPath, cfgPath string) ([]string, error) {
	credProfiles, err := parseProfilesFromFile(credPath, false)
	if err != nil {
		return nil, err
	}
	cfgProfiles, err := parseProfilesFromFile(cfgPath, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []string
	for _, name := range append(credProfiles, cfgProfiles...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		all = append(all, name)
	}
	return all, nil
}

// parseProfilesFromFile returns the profile name of each section in the INI
// file at path. In the config file non-default profiles are written as
// "[profile name]" and other section kinds (sso-session, services) are not
// profiles. A missing file yields no names and no error.
func parseProfilesFromFile(path string, configFile bool) ([]string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{Loose: true, AllowBooleanKeys: true}, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var profiles []string
	for _, name := range f.SectionStrings() {
		if name == ini.DefaultSection {
			continue
		}
		name = strings.TrimSpace(name)
		if configFile && name != "default" {
			rest, ok := strings.CutPrefix(name, "profile ")
			if !ok {
				continue
			}
			name = strings.TrimSpace(rest)
		}
		profiles = append(profiles, name)
	}
	return profiles, nil
}
