// Package samples bundles one misconfigured example document per dialect so
// the scanner can be tried without real configuration at hand.
package samples

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
)

//go:embed data/*.json
var files embed.FS

// ErrUnknownSample is returned by Load for names not in Names.
var ErrUnknownSample = errors.New("unknown sample")

// Names returns the sample file names in lexical order.
func Names() []string {
	entries, err := fs.ReadDir(files, "data")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// Load returns the named sample as an input whose hint is the sample's file
// name. The ".json" suffix may be omitted.
func Load(name string) (ingest.Input, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	if name != path.Base(name) {
		return ingest.Input{}, fmt.Errorf("%w %q", ErrUnknownSample, name)
	}
	data, err := files.ReadFile(path.Join("data", name))
	if err != nil {
		return ingest.Input{}, fmt.Errorf("%w %q; available: %s", ErrUnknownSample, name, strings.Join(Names(), ", "))
	}
	return ingest.Input{Name: name, Text: string(data)}, nil
}
