// Package terraform extracts static policy documents from Terraform
// configuration so they can be scanned like standalone files.
package terraform

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
)

// evalContext resolves literal strings, heredocs without interpolation and
// jsonencode over literal values. Anything that references variables,
// resources or other functions fails to evaluate and is skipped.
var evalContext = &hcl.EvalContext{
	Functions: map[string]function.Function{
		"jsonencode": stdlib.JSONEncodeFunc,
	},
}

// Source extracts policies from a .tf file or from every .tf file under a
// directory (.terraform directories are skipped).
type Source struct {
	Path string
}

// Extract is Source{Path: path}.Inputs with a background context.
func Extract(path string) ([]ingest.Input, error) {
	return Source{Path: path}.Inputs(context.Background())
}

// Inputs returns one input per static policy-like attribute (any attribute
// whose name contains "policy") of resource and data blocks, named
// <file>#<type>.<name>.<attr>. Nested blocks such as inline_policy add
// their block type to the name.
func (s Source) Inputs(ctx context.Context) ([]ingest.Input, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return extractFile(ctx, hclparse.NewParser(), s.Path)
	}

	parser := hclparse.NewParser()
	var inputs []ingest.Input
	err = filepath.WalkDir(s.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".terraform" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".tf") {
			return nil
		}
		found, err := extractFile(ctx, parser, path)
		if err != nil {
			return err
		}
		inputs = append(inputs, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inputs, nil
}

func extractFile(ctx context.Context, parser *hclparse.Parser, path string) ([]ingest.Input, error) {
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", path, diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("parse %s: not native HCL syntax", path)
	}

	e := extractor{log: zerolog.Ctx(ctx), file: filepath.Base(path)}
	for _, blk := range body.Blocks {
		if (blk.Type != "resource" && blk.Type != "data") || len(blk.Labels) < 2 {
			continue
		}
		e.block(blk.Body, blk.Labels[0]+"."+blk.Labels[1])
	}
	return e.inputs, nil
}

type extractor struct {
	log    *zerolog.Logger
	file   string
	inputs []ingest.Input
}

func (e *extractor) block(body *hclsyntax.Body, ref string) {
	names := make([]string, 0, len(body.Attributes))
	for name := range body.Attributes {
		if strings.Contains(strings.ToLower(name), "policy") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		hint := fmt.Sprintf("%s#%s.%s", e.file, ref, name)
		text, ok := staticString(body.Attributes[name].Expr)
		if !ok {
			e.log.Debug().Str("attribute", hint).Msg("skipping dynamic policy expression")
			continue
		}
		in, err := ingest.FromText(hint, text)
		if err != nil {
			continue
		}
		e.inputs = append(e.inputs, in)
	}

	for _, nested := range body.Blocks {
		e.block(nested.Body, ref+"."+nested.Type)
	}
}

func staticString(expr hclsyntax.Expression) (string, bool) {
	val, diags := expr.Value(evalContext)
	if diags.HasErrors() || val.IsNull() || !val.IsWhollyKnown() || !val.Type().Equals(cty.String) {
		return "", false
	}
	return val.AsString(), true
}
