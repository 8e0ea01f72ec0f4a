// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// ValidationError reports malformed or missing caller input. It is raised
// before any side effect takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AuthorizationError reports a caller that could not be identified or that
// lacks the role an operation requires.
type AuthorizationError struct {
	// Role is the role the operation required.
	Role string

	// Unauthenticated is true when no valid credential was presented.
	Unauthenticated bool
}

func (e *AuthorizationError) Error() string {
	if e.Unauthenticated {
		return "missing or invalid credentials"
	}
	return fmt.Sprintf("role %q required", e.Role)
}

// NotFoundError reports an identifier with no persisted article.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("article %q not found", e.ID)
}

// AcquisitionError reports a failed acquisition batch. Stage is "search"
// when a backend failed and "persist" when the store write failed.
type AcquisitionError struct {
	Query string
	Stage string
	Err   error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring %q failed during %s: %v", e.Query, e.Stage, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }
