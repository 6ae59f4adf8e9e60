// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package msteams

import (
	"context"
	"errors"
	"fmt"
)

// Directory is the read-only lookup surface the graph builder depends
// on. Implementations: Client (live tenant), Fake (tests), and the
// cache decorator in internal/cache.
//
// All lookups are attempted exactly once; they are assumed idempotent
// and carry no retry contract beyond what the implementation provides.
// A missing object is reported as *NotFoundError.
type Directory interface {
	// GetAutoAttendant fetches an auto attendant by identity or, when no
	// identity matches, by display name.
	GetAutoAttendant(ctx context.Context, idOrName string) (*AutoAttendant, error)

	// GetCallQueue fetches a call queue by identity or display name.
	GetCallQueue(ctx context.Context, idOrName string) (*CallQueue, error)

	// GetUser fetches a directory user by object id.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetGroup fetches a directory group by object id.
	GetGroup(ctx context.Context, id string) (*Group, error)

	// ListAutoAttendants enumerates all auto attendants in the tenant.
	ListAutoAttendants(ctx context.Context) ([]VoiceApp, error)

	// ListCallQueues enumerates all call queues in the tenant.
	ListCallQueues(ctx context.Context) ([]VoiceApp, error)

	// FindApplicationInstanceOwner searches both collections for the
	// voice app owning the given resource-account object id.
	FindApplicationInstanceOwner(ctx context.Context, instanceID string) (*VoiceApp, error)
}

// NotFoundError reports that a requested tenant object does not exist,
// e.g. a transfer target pointing at a deleted user.
type NotFoundError struct {
	// Kind names the object type: "auto attendant", "call queue",
	// "user", "group", "application instance".
	Kind string

	// ID is the identifier or name that failed to resolve.
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// IsNotFound reports whether err wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
