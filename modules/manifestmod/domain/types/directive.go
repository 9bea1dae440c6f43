package types

// BucketDirectives is the resolved outcome for one install-type bucket.
// Package lists are sorted; a package never appears in both.
type BucketDirectives struct {
	Install []string `json:"install"`
	Remove  []string `json:"remove"`
}

// DirectiveSet maps install type to resolved directives. Empty when no
// rule matched.
type DirectiveSet map[string]BucketDirectives
