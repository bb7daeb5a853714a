package models

import "time"

// ScanReport is the machine-readable rendering of one completed scan.
// The plain-text report deliberately omits RunID and timestamps so that
// successive runs against an unchanged cluster diff clean; json and yaml
// output carry the full struct.
type ScanReport struct {
	RunID         string          `json:"run_id"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   time.Time       `json:"completed_at"`
	ServerVersion string          `json:"server_version,omitempty"`
	Namespace     string          `json:"namespace,omitempty"`
	AllNamespaces bool            `json:"all_namespaces,omitempty"`
	Results       []CheckerResult `json:"results"`
	TotalFindings int             `json:"total_findings"`
}

// CountFindings sums findings across all checker results.
func (r *ScanReport) CountFindings() int {
	n := 0
	for i := range r.Results {
		n += len(r.Results[i].Findings)
	}
	return n
}
