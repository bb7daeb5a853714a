// Package scan implements the audit engine: one stateless checker per
// resource kind, a shared reference validator, and the orchestrator that runs
// the checkers in a fixed order and streams their findings to a report sink.
package scan

import (
	"context"
	"log/slog"
	"sort"

	"github.com/clusteraudit/clusteraudit/internal/models"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

// Scope is the explicit namespace target of a scan. AllNamespaces is a
// distinct mode, not a sentinel namespace value.
type Scope struct {
	Namespace     string
	AllNamespaces bool
}

// ListNamespace returns the namespace argument for client-go list calls.
func (s Scope) ListNamespace() string {
	if s.AllNamespaces {
		return metav1.NamespaceAll
	}
	return s.Namespace
}

func (s Scope) String() string {
	if s.AllNamespaces {
		return "all namespaces"
	}
	return "namespace " + s.Namespace
}

// Checker inspects all objects of one kind and reports integrity findings.
// Run returns an error only when the checker could not execute at all (list
// failed, required CRDs absent); the orchestrator records that as a skipped
// checker and continues with the rest of the scan.
type Checker interface {
	Name() string
	Run(ctx context.Context, input Input) ([]models.Finding, error)
}

// Input carries everything a checker needs for one scan pass.
type Input struct {
	Client    kubernetes.Interface
	Dynamic   dynamic.Interface
	Discovery discovery.DiscoveryInterface
	Scope     Scope
	Refs      *ReferenceValidator
	LogTail   int64
	Log       *slog.Logger
}

func (in Input) logger() *slog.Logger {
	if in.Log != nil {
		return in.Log
	}
	return slog.Default()
}

// sortItems orders objects by (namespace, name) so finding emission within a
// checker is deterministic at any concurrency.
func sortItems[T any](items []T, meta func(*T) *metav1.ObjectMeta) {
	sort.Slice(items, func(i, j int) bool {
		a, b := meta(&items[i]), meta(&items[j])
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Name < b.Name
	})
}
