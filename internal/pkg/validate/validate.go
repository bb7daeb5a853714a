// Package validate checks operator-supplied identifiers before a scan runs.
package validate

import "regexp"

// RFC 1123 label: lowercase alphanumeric and hyphen, no leading or trailing
// hyphen. Namespace names use this shape.
var labelRe = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// Namespace reports whether ns can name a Kubernetes namespace: an RFC 1123
// label of at most 63 characters. Empty is not valid; scanning every
// namespace is a distinct mode, not an empty selector.
func Namespace(ns string) bool {
	return ns != "" && len(ns) <= 63 && labelRe.MatchString(ns)
}
