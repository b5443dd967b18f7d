package auth

import (
	"net/http"
	"strings"
)

// Policy decides which requests are exempt from auth and which role a
// request requires.
type Policy interface {
	IsExempt(r *http.Request) bool
	RequiredRole(r *http.Request) (Role, bool)
}

// DefaultPolicy exempts listed path prefixes and requires viewer for reads,
// operator for mutations.
type DefaultPolicy struct {
	exemptPrefixes []string
}

// NewDefaultPolicy constructs a policy.
func NewDefaultPolicy(exemptPrefixes []string) DefaultPolicy {
	return DefaultPolicy{exemptPrefixes: exemptPrefixes}
}

// IsExempt returns true for exempt paths.
func (p DefaultPolicy) IsExempt(r *http.Request) bool {
	if r == nil {
		return false
	}
	for _, prefix := range p.exemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole maps request method to the minimum role.
func (p DefaultPolicy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return RoleViewer, true
	default:
		return RoleOperator, true
	}
}
