package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sclient "k8s.io/client-go/kubernetes"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
)

// DefaultNamespace is used when ConfigMapSource.Namespace is empty.
const DefaultNamespace = "default"

// ConfigMapSource reads configuration files stored as ConfigMap data keys.
// With Name set, one ConfigMap is read and each input is named after its
// data key; with Name empty, every ConfigMap in the namespace is read and
// inputs are named <configmap>/<key>.
type ConfigMapSource struct {
	Clientset k8sclient.Interface
	Namespace string
	Name      string
}

// Inputs returns one input per non-blank data key, sorted by key within
// each ConfigMap.
func (s ConfigMapSource) Inputs(ctx context.Context) ([]ingest.Input, error) {
	if s.Clientset == nil {
		return nil, errors.New("configmap source: no clientset")
	}
	ns := s.namespace()

	if s.Name != "" {
		cm, err := s.Clientset.CoreV1().ConfigMaps(ns).Get(ctx, s.Name, metav1.GetOptions{})
		if err != nil {
			return nil, fmt.Errorf("get configmap %s/%s: %w", ns, s.Name, err)
		}
		return configMapInputs(cm, false), nil
	}

	list, err := s.Clientset.CoreV1().ConfigMaps(ns).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list configmaps in %s: %w", ns, err)
	}
	items := list.Items
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	var inputs []ingest.Input
	for i := range items {
		inputs = append(inputs, configMapInputs(&items[i], true)...)
	}
	return inputs, nil
}

func (s ConfigMapSource) namespace() string {
	if s.Namespace == "" {
		return DefaultNamespace
	}
	return s.Namespace
}

// configMapInputs skips blank values; a key such as "policy.json" keeps its
// extension so filename classification still applies.
func configMapInputs(cm *corev1.ConfigMap, qualify bool) []ingest.Input {
	keys := make([]string, 0, len(cm.Data))
	for k := range cm.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	inputs := make([]ingest.Input, 0, len(keys))
	for _, k := range keys {
		name := k
		if qualify {
			name = path.Join(cm.Name, k)
		}
		in, err := ingest.FromText(name, cm.Data[k])
		if err != nil {
			continue
		}
		inputs = append(inputs, in)
	}
	return inputs
}
