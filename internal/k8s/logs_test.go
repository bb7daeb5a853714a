package k8s

import (
	"context"
	"testing"

	"k8s.io/client-go/kubernetes/fake"
)

func TestPodLogs_ReturnsStreamContents(t *testing.T) {
	clientset := fake.NewSimpleClientset()

	logs, err := PodLogs(context.Background(), clientset, "default", "web-0", "app", 100)
	if err != nil {
		t.Fatalf("PodLogs: %v", err)
	}
	// The fake clientset serves a fixed payload for any log request.
	if logs != "fake logs" {
		t.Fatalf("unexpected log payload: %q", logs)
	}
}

func TestPodLogs_ZeroTailFetchesDefault(t *testing.T) {
	clientset := fake.NewSimpleClientset()

	logs, err := PodLogs(context.Background(), clientset, "default", "web-0", "app", 0)
	if err != nil {
		t.Fatalf("PodLogs: %v", err)
	}
	if logs == "" {
		t.Fatal("expected log contents")
	}
}
