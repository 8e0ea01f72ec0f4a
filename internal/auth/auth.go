// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package auth identifies callers by bearer token and checks the role each
// article operation requires.
package auth

import (
	"bufio"
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/pdiddy/bibmine/pkg/types"
)

// Principal is an authenticated caller.
type Principal struct {
	Subject string
	Roles   []string
}

// HasRole reports whether p holds role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// Authenticator resolves bearer tokens to principals.
type Authenticator struct {
	// tokens is keyed by the SHA-256 of each token.
	tokens map[[sha256.Size]byte]Principal
}

// NewAuthenticator builds an Authenticator from token bindings. Tokens must
// be non-empty and unique.
func NewAuthenticator(bindings []types.TokenConfig) (*Authenticator, error) {
	a := &Authenticator{tokens: make(map[[sha256.Size]byte]Principal, len(bindings))}
	for i, b := range bindings {
		token := strings.TrimSpace(b.Token)
		if token == "" {
			return nil, fmt.Errorf("token %d: empty token", i)
		}
		key := sha256.Sum256([]byte(token))
		if _, dup := a.tokens[key]; dup {
			return nil, fmt.Errorf("token %d (%s): duplicate token", i, b.Subject)
		}
		subject := b.Subject
		if subject == "" {
			subject = fmt.Sprintf("token-%d", i)
		}
		a.tokens[key] = Principal{Subject: subject, Roles: normalizeRoles(b.Roles)}
	}
	return a, nil
}

// Len returns the number of accepted tokens.
func (a *Authenticator) Len() int { return len(a.tokens) }

// Authenticate resolves the request's "Authorization: Bearer" header. A
// missing, malformed or unknown token yields an unauthenticated
// *types.AuthorizationError.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Principal{}, &types.AuthorizationError{Unauthenticated: true}
	}
	p, ok := a.tokens[sha256.Sum256([]byte(token))]
	if !ok {
		return Principal{}, &types.AuthorizationError{Unauthenticated: true}
	}
	return p, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ParseTokens reads token bindings from the api-tokens secret. Each
// non-blank line that is not a "#" comment has the form
//
//	<token> <subject> <role>[,<role>...]
func ParseTokens(data string) ([]types.TokenConfig, error) {
	var out []types.TokenConfig
	sc := bufio.NewScanner(strings.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: want \"<token> <subject> <roles>\", got %d fields", n, len(fields))
		}
		out = append(out, types.TokenConfig{
			Token:   fields[0],
			Subject: fields[1],
			Roles:   strings.Split(fields[2], ","),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading tokens: %w", err)
	}
	return out, nil
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
