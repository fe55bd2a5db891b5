package config

import (
	"strings"

	"github.com/agnesscodex/s4/internal/errs"
)

// Target addresses a remote location as alias/bucket[/key]. Bucket and
// Key are empty when the input carries fewer segments; Key may itself
// contain slashes.
type Target struct {
	Alias  string
	Bucket string
	Key    string
}

// ParseTarget splits "alias/bucket/key" into its parts.
func ParseTarget(input string) (Target, error) {
	parts := strings.SplitN(input, "/", 3)
	if parts[0] == "" {
		return Target{}, errs.Configf("target alias is empty: %q", input)
	}

	t := Target{Alias: parts[0]}
	if len(parts) > 1 {
		t.Bucket = parts[1]
	}
	if len(parts) > 2 {
		t.Key = parts[2]
	}

	return t, nil
}

// String reassembles the target for messages and logs.
func (t Target) String() string {
	out := t.Alias
	if t.Bucket != "" {
		out += "/" + t.Bucket
	}
	if t.Key != "" {
		out += "/" + t.Key
	}
	return out
}

// ResolveRemote interprets value as alias/bucket[/prefix] against the
// configured aliases. It reports false when the first segment is not a
// known alias or no bucket is given; such values are local paths.
func (s *AliasStore) ResolveRemote(value string) (Target, bool) {
	t, err := ParseTarget(value)
	if err != nil {
		return Target{}, false
	}
	if _, ok := s.Get(t.Alias); !ok {
		return Target{}, false
	}
	if t.Bucket == "" {
		return Target{}, false
	}
	return t, true
}

// ResolveObject is ResolveRemote restricted to targets that name a full
// object key, as cp and mv require.
func (s *AliasStore) ResolveObject(value string) (Target, bool) {
	t, ok := s.ResolveRemote(value)
	if !ok || t.Key == "" {
		return Target{}, false
	}
	return t, true
}
