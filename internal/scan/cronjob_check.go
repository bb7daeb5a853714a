package scan

import (
	"context"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// CronJobChecker flags CronJobs that will not produce the workload their
// owners expect: suspended jobs, schedules the controller would reject, and
// negative starting deadlines.
type CronJobChecker struct{}

func (c *CronJobChecker) Name() string { return "cronjobs" }

func (c *CronJobChecker) Run(ctx context.Context, input Input) ([]models.Finding, error) {
	list, err := input.Client.BatchV1().CronJobs(input.Scope.ListNamespace()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list cronjobs: %w", err)
	}
	sortItems(list.Items, func(cj *batchv1.CronJob) *metav1.ObjectMeta { return &cj.ObjectMeta })

	var findings []models.Finding
	for i := range list.Items {
		cj := &list.Items[i]
		subject := models.ResourceRef{Kind: "CronJob", Namespace: cj.Namespace, Name: cj.Name}
		if cj.Spec.Suspend != nil && *cj.Spec.Suspend {
			findings = append(findings, models.Finding{
				Nature:  models.NatureConfigurationDefect,
				Subject: subject,
				Message: fmt.Sprintf("CronJob %s in namespace %s is suspended.", cj.Name, cj.Namespace),
			})
		}
		if err := ValidateCronSchedule(cj.Spec.Schedule); err != nil {
			findings = append(findings, models.Finding{
				Nature:  models.NatureConfigurationDefect,
				Subject: subject,
				Message: fmt.Sprintf("CronJob %s in namespace %s has an invalid schedule %q: %v.", cj.Name, cj.Namespace, cj.Spec.Schedule, err),
			})
		}
		if cj.Spec.StartingDeadlineSeconds != nil && *cj.Spec.StartingDeadlineSeconds < 0 {
			findings = append(findings, models.Finding{
				Nature:  models.NatureConfigurationDefect,
				Subject: subject,
				Message: fmt.Sprintf("CronJob %s in namespace %s has a negative startingDeadlineSeconds (%d).", cj.Name, cj.Namespace, *cj.Spec.StartingDeadlineSeconds),
			})
		}
	}
	return findings, nil
}
