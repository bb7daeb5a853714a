package scan

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/clusteraudit/clusteraudit/internal/k8s"
	"github.com/clusteraudit/clusteraudit/internal/models"
)

// logErrorPattern matches log lines worth surfacing. Case-sensitive:
// lowercase markers only.
var logErrorPattern = regexp.MustCompile(`error|exception|fail`)

// PodLogChecker tails recent log lines from each pod's first container and
// scans them for error markers. Pods whose logs cannot be read (still
// pending, container restarting) are skipped.
type PodLogChecker struct {
	// FetchLogs overrides log retrieval in tests. Nil uses the API.
	FetchLogs func(ctx context.Context, client kubernetes.Interface, namespace, name, container string, tail int64) (string, error)
}

func (c *PodLogChecker) Name() string { return "podlogs" }

func (c *PodLogChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.CoreV1().Pods(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list pods: %w", err)
	}
	sortItems(list.Items, func(p *corev1.Pod) *metav1.ObjectMeta { return &p.ObjectMeta })

	fetch := c.FetchLogs
	if fetch == nil {
		fetch = k8s.PodLogs
	}

	var findings []models.Finding
	for i := range list.Items {
		pod := &list.Items[i]
		if len(pod.Spec.Containers) == 0 {
			continue
		}
		text, err := fetch(ctx, input.Client, pod.Namespace, pod.Name, pod.Spec.Containers[0].Name, input.LogTail)
		if err != nil {
			input.logger().Debug("skipping pod, log fetch failed",
				"namespace", pod.Namespace, "name", pod.Name, "error", err)
			continue
		}
		matched := 0
		scanner := bufio.NewScanner(strings.NewReader(text))
		for scanner.Scan() {
			if logErrorPattern.MatchString(scanner.Text()) {
				matched++
			}
		}
		subject := models.ResourceRef{Kind: "Pod", Namespace: pod.Namespace, Name: pod.Name}
		if matched > 0 {
			findings = append(findings, models.Finding{
				Nature:  models.NatureLogAnomaly,
				Subject: subject,
				Message: fmt.Sprintf("Pod %s in namespace %s has %d recent log line(s) matching error patterns.",
					pod.Name, pod.Namespace, matched),
			})
		} else {
			findings = append(findings, models.Finding{
				Nature:  models.NatureLogAnomaly,
				Subject: subject,
				Message: fmt.Sprintf("Pod %s in namespace %s has no error lines in recent logs.",
					pod.Name, pod.Namespace),
			})
		}
	}
	return findings, nil
}
