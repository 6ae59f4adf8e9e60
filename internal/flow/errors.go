// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flow

import (
	"errors"
	"fmt"
)

// ResolutionError reports an ApplicationEndpoint target whose owning
// voice app matches neither the auto-attendant nor the call-queue
// collection: inconsistent tenant configuration. The affected edge is
// rendered as a placeholder; the traversal continues.
type ResolutionError struct {
	// InstanceID is the resource-account object id that failed to
	// resolve to an owner.
	InstanceID string

	// Cause is the underlying lookup failure, if any.
	Cause error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("application endpoint %q owned by no known voice app: %v", e.InstanceID, e.Cause)
	}
	return fmt.Sprintf("application endpoint %q owned by no known voice app", e.InstanceID)
}

// Unwrap exposes the underlying lookup failure.
func (e *ResolutionError) Unwrap() error { return e.Cause }

// IsResolutionError reports whether err wraps a *ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

// ConfigurationAmbiguityError reports tenant configuration the builder
// cannot interpret, e.g. a schedule whose shape matches no known
// weekly-range form. Callers treat it conservatively (the ambiguous
// feature is considered unconfigured) and log a warning.
type ConfigurationAmbiguityError struct {
	AppID  string
	Detail string
}

// Error implements the error interface.
func (e *ConfigurationAmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous configuration on %s: %s", e.AppID, e.Detail)
}
