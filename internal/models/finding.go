package models

import "fmt"

// Nature classifies what kind of integrity problem a Finding reports.
// The set is closed; checkers never invent ad-hoc natures.
type Nature string

const (
	NatureConfigurationDefect    Nature = "ConfigurationDefect"
	NatureDanglingReference      Nature = "DanglingReference"
	NatureUnhealthyDependency    Nature = "UnhealthyDependency"
	NatureReplicaMismatch        Nature = "ReplicaMismatch"
	NatureResourceRequestMissing Nature = "ResourceRequestMissing"
	NatureSchedulingIssue        Nature = "SchedulingIssue"
	NatureLogAnomaly             Nature = "LogAnomaly"
)

// ResourceRef identifies a cluster object or a reference target.
// Namespace is empty for cluster-scoped kinds.
type ResourceRef struct {
	Kind      string `json:"kind"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

func (r ResourceRef) String() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s/%s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s/%s/%s", r.Kind, r.Namespace, r.Name)
}

// Finding is one reported integrity issue tied to a specific cluster object.
// Findings carry no severity; whether they fail the run is the caller's policy.
type Finding struct {
	Nature  Nature      `json:"nature"`
	Subject ResourceRef `json:"subject"`
	Message string      `json:"message"`
	Checker string      `json:"checker,omitempty"`
}

// CheckerResult is the outcome of one checker in one scan. Skipped marks a
// checker that could not run at all (for example, Gateway API CRDs are not
// installed); it contributes zero findings and never aborts the scan.
type CheckerResult struct {
	Checker    string    `json:"checker"`
	Findings   []Finding `json:"findings"`
	Skipped    bool      `json:"skipped,omitempty"`
	SkipReason string    `json:"skip_reason,omitempty"`
}
