package k8s

import (
	"context"
	"fmt"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// EventsFor lists events involving one object, newest first. The involved
// object is selected server-side via field selector and matched again on the
// returned items.
func EventsFor(ctx context.Context, client kubernetes.Interface, namespace, kind, name string) ([]corev1.Event, error) {
	list, err := client.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{
		FieldSelector: fmt.Sprintf("involvedObject.kind=%s,involvedObject.name=%s", kind, name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]corev1.Event, 0, len(list.Items))
	for _, ev := range list.Items {
		if ev.InvolvedObject.Kind != kind || ev.InvolvedObject.Name != name {
			continue
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return eventTime(&events[i]).After(eventTime(&events[j]))
	})
	return events, nil
}

// eventTime prefers LastTimestamp and falls back to the object's creation
// time for events that never set it.
func eventTime(ev *corev1.Event) time.Time {
	if !ev.LastTimestamp.IsZero() {
		return ev.LastTimestamp.Time
	}
	return ev.CreationTimestamp.Time
}
