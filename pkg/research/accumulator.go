package research

import (
	"net/url"
	"strings"
)

// CanonicalSourceID normalises a source URL into the dedup key: lower-case
// scheme and host, no fragment, no trailing slash. Non-URL input is trimmed
// and returned as is.
func CanonicalSourceID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// Merge appends the incoming findings whose SourceID is not already present.
// Existing order is preserved and survivors keep their arrival order.
// Findings without a SourceID are dropped. Merge does not modify its inputs.
func Merge(existing, incoming []Finding) ([]Finding, int) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, f := range existing {
		seen[f.SourceID] = struct{}{}
	}

	merged := make([]Finding, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	added := 0
	for _, f := range incoming {
		if f.SourceID == "" {
			continue
		}
		if _, dup := seen[f.SourceID]; dup {
			continue
		}
		seen[f.SourceID] = struct{}{}
		merged = append(merged, f)
		added++
	}
	return merged, added
}
