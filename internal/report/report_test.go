package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sigyaml "sigs.k8s.io/yaml"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

func sampleReport() *models.ScanReport {
	started := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	rep := &models.ScanReport{
		RunID:         "0d4c1a9e-0000-4000-8000-000000000000",
		StartedAt:     started,
		CompletedAt:   started.Add(3 * time.Second),
		ServerVersion: "v1.31.0",
		Namespace:     "default",
		Results: []models.CheckerResult{
			{
				Checker: "deployments",
				Findings: []models.Finding{{
					Nature:  models.NatureReplicaMismatch,
					Subject: models.ResourceRef{Kind: "Deployment", Namespace: "default", Name: "web"},
					Message: "Deployment web in namespace default has a replica mismatch: 3 desired, 3 current, 1 available.",
					Checker: "deployments",
				}},
			},
			{
				Checker:    "gateways",
				Findings:   []models.Finding{},
				Skipped:    true,
				SkipReason: "gateway.networking.k8s.io/v1 is not served by this cluster",
			},
			{
				Checker: "services",
				Findings: []models.Finding{{
					Nature:  models.NatureUnhealthyDependency,
					Subject: models.ResourceRef{Kind: "Service", Namespace: "default", Name: "web"},
					Message: "Service web in namespace default has no endpoints.",
					Checker: "services",
				}},
			},
		},
	}
	rep.TotalFindings = rep.CountFindings()
	return rep
}

func TestParseFormat(t *testing.T) {
	for _, ok := range []string{"text", "json", "yaml"} {
		f, err := ParseFormat(ok)
		require.NoError(t, err)
		assert.Equal(t, Format(ok), f)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestTextWriter_StreamsAndSummarizes(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTextWriter(&buf)
	for _, res := range sampleReport().Results {
		require.NoError(t, tw.WriteResult(res))
	}
	total, err := tw.Finish()
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[ReplicaMismatch] Deployment web in namespace default has a replica mismatch: 3 desired, 3 current, 1 available.", lines[0])
	assert.Equal(t, "[UnhealthyDependency] Service web in namespace default has no endpoints.", lines[1])
	assert.Equal(t, "2 findings", lines[2])
}

func TestTextWriter_SingularSummary(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTextWriter(&buf)
	require.NoError(t, tw.WriteResult(sampleReport().Results[0]))
	_, err := tw.Finish()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(buf.String(), "1 finding\n"))
}

func TestTextWriter_EmptyScan(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTextWriter(&buf)
	total, err := tw.Finish()
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, "0 findings\n", buf.String())
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	rep := sampleReport()
	require.NoError(t, WriteJSON(&buf, rep))

	var decoded models.ScanReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, rep.RunID, decoded.RunID)
	assert.Equal(t, 2, decoded.TotalFindings)
	require.Len(t, decoded.Results, 3)
	assert.True(t, decoded.Results[1].Skipped)
	assert.Equal(t, "services", decoded.Results[2].Checker)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleReport()))

	var decoded models.ScanReport
	require.NoError(t, sigyaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "v1.31.0", decoded.ServerVersion)
	assert.Equal(t, 2, decoded.TotalFindings)
}

func TestWrite_TextMatchesStreaming(t *testing.T) {
	rep := sampleReport()

	var streamed bytes.Buffer
	tw := NewTextWriter(&streamed)
	for _, res := range rep.Results {
		require.NoError(t, tw.WriteResult(res))
	}
	_, err := tw.Finish()
	require.NoError(t, err)

	var rendered bytes.Buffer
	require.NoError(t, Write(&rendered, FormatText, rep))
	assert.Equal(t, streamed.String(), rendered.String())
}
