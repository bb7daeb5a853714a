package scan

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// StatefulSetChecker applies the replica mismatch rule and verifies the
// governing Service and volume claim StorageClasses exist.
type StatefulSetChecker struct{}

func (c *StatefulSetChecker) Name() string { return "statefulsets" }

func (c *StatefulSetChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.AppsV1().StatefulSets(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list statefulsets: %w", err)
	}
	sortItems(list.Items, func(s *appsv1.StatefulSet) *metav1.ObjectMeta { return &s.ObjectMeta })

	var findings []models.Finding
	for i := range list.Items {
		sts := &list.Items[i]
		subject := models.ResourceRef{Kind: "StatefulSet", Namespace: sts.Namespace, Name: sts.Name}

		desired := int32(1)
		if sts.Spec.Replicas != nil {
			desired = *sts.Spec.Replicas
		}
		if desired != sts.Status.Replicas || desired != sts.Status.AvailableReplicas {
			findings = append(findings, models.Finding{
				Nature:  models.NatureReplicaMismatch,
				Subject: subject,
				Message: fmt.Sprintf("StatefulSet %s in namespace %s has a replica mismatch: %d desired, %d current, %d available.",
					sts.Name, sts.Namespace, desired, sts.Status.Replicas, sts.Status.AvailableReplicas),
			})
		}

		if sts.Spec.ServiceName != "" {
			ref := models.ResourceRef{Kind: "Service", Namespace: sts.Namespace, Name: sts.Spec.ServiceName}
			if !input.Refs.Exists(ctx, ref) {
				findings = append(findings, models.Finding{
					Nature:  models.NatureDanglingReference,
					Subject: subject,
					Message: fmt.Sprintf("StatefulSet %s in namespace %s references Service %q which does not exist.",
						sts.Name, sts.Namespace, sts.Spec.ServiceName),
				})
			}
		}

		seenClasses := map[string]bool{}
		for _, vct := range sts.Spec.VolumeClaimTemplates {
			className := vct.Spec.StorageClassName
			if className == nil || *className == "" || seenClasses[*className] {
				continue
			}
			seenClasses[*className] = true
			if !input.Refs.Exists(ctx, models.ResourceRef{Kind: "StorageClass", Name: *className}) {
				findings = append(findings, models.Finding{
					Nature:  models.NatureDanglingReference,
					Subject: subject,
					Message: fmt.Sprintf("StatefulSet %s in namespace %s references StorageClass %q which does not exist.",
						sts.Name, sts.Namespace, *className),
				})
			}
		}
	}
	return findings, nil
}
