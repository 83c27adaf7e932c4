// Package errors provides standardized error handling patterns for the
// annotation core.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input or a rejected
// request, non-retryable), and Fatal (unrecoverable, stop processing).
//
// Classification lets callers decide between surfacing an error to the
// user, silently dropping a guarded request, and tearing down the actor
// tree, without hardcoded error string matching.
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if m.state == StateLoading {
//	    return errors.ErrEditInFlight
//	}
//
// Wrap errors with component context for debugging:
//
//	if err := client.Edit(ctx, action, args); err != nil {
//	    return errors.WrapTransient(err, "EditAPI", "Edit", "edit request")
//	}
//
// Check classification at the handling boundary:
//
//	if errors.IsTransient(err) {
//	    // surface to the user, state returns to idle
//	}
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
package errors
