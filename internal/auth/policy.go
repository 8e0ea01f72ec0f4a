// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package auth

import (
	"net/http"
	"strings"

	"github.com/pdiddy/bibmine/pkg/types"
)

// Operation names used as policy keys.
const (
	OpSearch = "articles_search"
	OpRaw    = "articles_raw"
	OpFull   = "articles_full"
	OpDelete = "articles_delete"
)

// RoleUser is the role every article operation requires by default.
const RoleUser = "user"

// Policy maps operation names to the role they require.
type Policy map[string]string

// DefaultPolicy requires RoleUser for every article operation.
func DefaultPolicy() Policy {
	return Policy{
		OpSearch: RoleUser,
		OpRaw:    RoleUser,
		OpFull:   RoleUser,
		OpDelete: RoleUser,
	}
}

// NewPolicy returns DefaultPolicy with overrides applied. Blank overrides
// are ignored so an operation cannot be made public by accident.
func NewPolicy(overrides map[string]string) Policy {
	p := DefaultPolicy()
	for op, role := range overrides {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		p[strings.ToLower(strings.TrimSpace(op))] = role
	}
	return p
}

// Role returns the role op requires. Operations missing from the policy
// require RoleUser.
func (p Policy) Role(op string) string {
	if role, ok := p[op]; ok {
		return role
	}
	return RoleUser
}

// Guard authenticates requests and enforces a Policy.
type Guard struct {
	auth   *Authenticator
	policy Policy
}

// NewGuard builds a Guard.
func NewGuard(auth *Authenticator, policy Policy) *Guard {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Guard{auth: auth, policy: policy}
}

// Check authenticates r and verifies the caller holds the role op requires.
// Failures are *types.AuthorizationError.
func (g *Guard) Check(r *http.Request, op string) (Principal, error) {
	p, err := g.auth.Authenticate(r)
	if err != nil {
		return Principal{}, err
	}
	role := g.policy.Role(op)
	if !p.HasRole(role) {
		return p, &types.AuthorizationError{Role: role}
	}
	return p, nil
}

// Require wraps next so it only runs for callers allowed to perform op.
// Rejected requests are handed to fail and never reach next.
func (g *Guard) Require(op string, next http.Handler, fail func(http.ResponseWriter, *http.Request, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := g.Check(r, op)
		if err != nil {
			fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
