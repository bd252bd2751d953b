package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/aws/awsconfig"
	kube "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/kubernetes"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/terraform"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/samples"
)

// sourceConcurrency bounds concurrent cloud and cluster reads.
const sourceConcurrency = 4

// localFlags select documents from files, stdin, the command line or the
// bundled samples.
type localFlags struct {
	text    string
	name    string
	samples []string
}

func (f *localFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "scan this literal text instead of a file")
	cmd.Flags().StringVar(&f.name, "name", "", "filename hint used for classification (e.g. bucket-policy.json)")
	cmd.Flags().StringSliceVar(&f.samples, "sample", nil, "scan a bundled sample document (repeatable; see cmc samples)")
}

// remoteFlags select documents read from AWS or a Kubernetes cluster.
type remoteFlags struct {
	s3Buckets     []string
	iamPolicyARNs []string
	iamRoles      []string
	profile       string
	region        string

	configMaps  []string
	kubeContext string
	kubeconfig  string
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.s3Buckets, "s3-bucket", nil, "scan the live configuration of an S3 bucket (repeatable)")
	cmd.Flags().StringSliceVar(&f.iamPolicyARNs, "iam-policy-arn", nil, "scan the default version of a managed IAM policy (repeatable)")
	cmd.Flags().StringSliceVar(&f.iamRoles, "iam-role", nil, "scan the trust policy of an IAM role (repeatable)")
	cmd.Flags().StringVar(&f.profile, "profile", "", "AWS profile (default: aws.default_profile, then the credential chain)")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region for bucket reads (default: the profile's region)")
	cmd.Flags().StringSliceVar(&f.configMaps, "k8s-configmap", nil, `scan a ConfigMap as "namespace/name", or every ConfigMap of "namespace/" (repeatable)`)
	cmd.Flags().StringVar(&f.kubeContext, "context", "", "kubeconfig context (default: current context)")
	cmd.Flags().StringVar(&f.kubeconfig, "kubeconfig", "", "kubeconfig path (default: $KUBECONFIG or ~/.kube/config)")
}

func (f *remoteFlags) any() bool {
	return len(f.s3Buckets)+len(f.iamPolicyARNs)+len(f.iamRoles)+len(f.configMaps) > 0
}

// readPath turns one positional argument into inputs. "-" is stdin;
// directories and .tf files go through the Terraform extractor.
func readPath(ctx context.Context, path string, stdin io.Reader) ([]ingest.Input, error) {
	if path == ingest.StdinName {
		in, err := ingest.ReadFile(path, stdin)
		if err != nil {
			return nil, &ValidationError{Err: fmt.Errorf("read stdin: %w", err)}
		}
		return []ingest.Input{in}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	if info.IsDir() || strings.EqualFold(filepath.Ext(path), ".tf") {
		ins, err := terraform.Source{Path: path}.Inputs(ctx)
		if err != nil {
			return nil, &ValidationError{Err: err}
		}
		if len(ins) == 0 {
			zerolog.Ctx(ctx).Warn().Str("path", path).Msg("no static policy documents found in Terraform source")
		}
		return ins, nil
	}

	in, err := ingest.ReadFile(path, stdin)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	return []ingest.Input{in}, nil
}

// localInputs reads every positional argument plus --text and --sample. With
// none of them, stdin is read unless readStdin is false.
func localInputs(ctx context.Context, args []string, f localFlags, stdin io.Reader, readStdin bool) ([]ingest.Input, error) {
	var inputs []ingest.Input
	for _, path := range args {
		ins, err := readPath(ctx, path, stdin)
		if err != nil {
			return nil, err
		}
		if f.name != "" && !isTerraform(path) {
			for i := range ins {
				ins[i].Name = f.name
			}
		}
		inputs = append(inputs, ins...)
	}

	if f.text != "" {
		in, err := ingest.FromText(f.name, f.text)
		if err != nil {
			return nil, &ValidationError{Err: fmt.Errorf("--text: %w", err)}
		}
		inputs = append(inputs, in)
	}

	for _, name := range f.samples {
		in, err := samples.Load(name)
		if err != nil {
			return nil, &ValidationError{Err: err}
		}
		inputs = append(inputs, in)
	}

	if len(args) == 0 && f.text == "" && len(f.samples) == 0 && readStdin {
		in, err := ingest.ReadFrom(f.name, stdin)
		if err != nil {
			return nil, &ValidationError{Err: fmt.Errorf("read stdin: %w", err)}
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func isTerraform(path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".tf") {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// remoteSources builds one ingest.Source per requested bucket, policy, role
// and ConfigMap selector. Credentials are resolved once per provider.
func (a *app) remoteSources(ctx context.Context, f remoteFlags) ([]ingest.Source, error) {
	var sources []ingest.Source

	if len(f.s3Buckets)+len(f.iamPolicyARNs)+len(f.iamRoles) > 0 {
		profile := f.profile
		if profile == "" {
			profile = a.cfg.AWS.DefaultProfile
		}
		provider := a.awsProvider(a.cfg.AWS.DefaultRegion)
		pc, err := provider.LoadProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("load AWS profile: %w", err)
		}
		zerolog.Ctx(ctx).Debug().
			Str("profile", pc.ProfileName).
			Str("account", pc.AccountID).
			Str("region", pc.Region).
			Msg("AWS profile loaded")

		clients := provider.ClientsForRegion(pc, f.region)
		for _, b := range f.s3Buckets {
			sources = append(sources, awsconfig.BucketSource{Bucket: b, Client: clients.S3})
		}
		for _, arn := range f.iamPolicyARNs {
			sources = append(sources, awsconfig.PolicySource{PolicyARN: arn, Client: clients.IAM})
		}
		for _, role := range f.iamRoles {
			sources = append(sources, awsconfig.PolicySource{RoleName: role, Client: clients.IAM})
		}
	}

	if len(f.configMaps) > 0 {
		clientset, info, err := a.kubeProvider(f.kubeconfig).ClientsetForContext(f.kubeContext)
		if err != nil {
			return nil, fmt.Errorf("load kubeconfig: %w", err)
		}
		zerolog.Ctx(ctx).Debug().Str("context", info.ContextName).Str("server", info.Server).Msg("kubernetes client ready")

		for _, sel := range f.configMaps {
			ns, name, err := parseConfigMapSelector(sel)
			if err != nil {
				return nil, err
			}
			sources = append(sources, kube.ConfigMapSource{Clientset: clientset, Namespace: ns, Name: name})
		}
	}
	return sources, nil
}

// parseConfigMapSelector accepts "ns/name", "ns/" (whole namespace) and a
// bare "name" in the default namespace.
func parseConfigMapSelector(sel string) (namespace, name string, err error) {
	sel = strings.TrimSpace(sel)
	if sel == "" || strings.Count(sel, "/") > 1 {
		return "", "", invalidf("invalid --k8s-configmap %q (want namespace/name or namespace/)", sel)
	}
	ns, n, found := strings.Cut(sel, "/")
	if !found {
		return kube.DefaultNamespace, sel, nil
	}
	if ns == "" {
		return "", "", invalidf("invalid --k8s-configmap %q: namespace is empty", sel)
	}
	if n == "*" {
		n = ""
	}
	return ns, n, nil
}

// fetchSources reads every source concurrently and returns the inputs in
// source order.
func fetchSources(ctx context.Context, sources []ingest.Source) ([]ingest.Input, error) {
	batches := make([][]ingest.Input, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sourceConcurrency)
	for i, src := range sources {
		g.Go(func() error {
			ins, err := src.Inputs(gctx)
			if err != nil {
				return err
			}
			batches[i] = ins
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var inputs []ingest.Input
	for _, b := range batches {
		inputs = append(inputs, b...)
	}
	return inputs, nil
}
