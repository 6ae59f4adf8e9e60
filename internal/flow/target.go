// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/voicegraph/callflow/internal/msteams"
	"github.com/voicegraph/callflow/pkg/logging"
)

// TargetKind tags the CallTarget variants.
type TargetKind int

const (
	// TargetUser is a transfer to a directory user.
	TargetUser TargetKind = iota

	// TargetExternalPstn is a transfer to an external number.
	TargetExternalPstn

	// TargetSharedVoicemail deposits the caller into a group mailbox.
	TargetSharedVoicemail

	// TargetNestedVoiceApp hands the call to another auto attendant or
	// call queue; the nested app is enqueued for expansion.
	TargetNestedVoiceApp

	// TargetDisconnect ends the call.
	TargetDisconnect
)

// CallTarget is the resolved, human-labeled form of a transfer target.
// Exactly one variant payload is populated according to Kind.
type CallTarget struct {
	Kind TargetKind

	// ID is the directory object id (user, mailbox) or the normalized
	// number (PSTN), or the nested app identity.
	ID string

	// Name is the display label for the target node.
	Name string

	// App is populated for TargetNestedVoiceApp.
	App *msteams.VoiceApp

	// SuppressSystemGreeting carries the shared-voicemail system
	// disclaimer setting.
	SuppressSystemGreeting bool

	// IsOperator marks a target reached through the operator action.
	IsOperator bool
}

// Resolver classifies raw transfer targets into CallTargets, resolving
// application endpoints to their owning voice app and registering
// nested apps on the accumulator worklist.
type Resolver struct {
	dir    msteams.Directory
	logger *logging.Logger
}

// NewResolver creates a target resolver over the given directory.
func NewResolver(dir msteams.Directory, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve classifies one raw target. A nil raw target resolves to
// Disconnect, mirroring tenant behavior when no fallback is set.
//
// Failure modes:
//   - User/Group lookups that miss return the directory's
//     *msteams.NotFoundError (deleted objects).
//   - ApplicationEndpoint ids owned by no voice app return a
//     *ResolutionError (inconsistent tenant data).
func (r *Resolver) Resolve(ctx context.Context, acc *Accumulator, raw *msteams.TransferTarget) (CallTarget, error) {
	if raw == nil {
		return CallTarget{Kind: TargetDisconnect, Name: "Disconnect Call"}, nil
	}

	switch raw.Type {
	case msteams.TargetTypeUser:
		user, err := r.dir.GetUser(ctx, raw.ID)
		if err != nil {
			return CallTarget{}, fmt.Errorf("resolving user target: %w", err)
		}
		return CallTarget{Kind: TargetUser, ID: user.ID, Name: user.DisplayName}, nil

	case msteams.TargetTypeExternalPstn:
		number := NormalizePstn(raw.ID)
		return CallTarget{Kind: TargetExternalPstn, ID: number, Name: number}, nil

	case msteams.TargetTypeSharedVoicemail:
		group, err := r.dir.GetGroup(ctx, raw.ID)
		if err != nil {
			return CallTarget{}, fmt.Errorf("resolving shared voicemail target: %w", err)
		}
		return CallTarget{
			Kind:                   TargetSharedVoicemail,
			ID:                     group.ID,
			Name:                   group.DisplayName,
			SuppressSystemGreeting: raw.SuppressSystemGreeting,
		}, nil

	case msteams.TargetTypeApplicationEndpoint:
		owner, err := r.dir.FindApplicationInstanceOwner(ctx, raw.ID)
		if err != nil {
			if msteams.IsNotFound(err) {
				return CallTarget{}, &ResolutionError{InstanceID: raw.ID, Cause: err}
			}
			return CallTarget{}, fmt.Errorf("resolving application endpoint: %w", err)
		}
		acc.Enqueue(owner.ID)
		return CallTarget{
			Kind: TargetNestedVoiceApp,
			ID:   owner.ID,
			Name: owner.Name,
			App:  owner,
		}, nil

	default:
		return CallTarget{}, &ResolutionError{InstanceID: raw.ID, Cause: fmt.Errorf("unknown target type %q", raw.Type)}
	}
}

// ResolveOperator resolves an auto attendant's operator target and
// flags the result. A nested voice app used as operator is enqueued
// like any other nested reference.
func (r *Resolver) ResolveOperator(ctx context.Context, acc *Accumulator, raw *msteams.TransferTarget) (CallTarget, error) {
	target, err := r.Resolve(ctx, acc, raw)
	if err != nil {
		return CallTarget{}, err
	}
	target.IsOperator = true
	return target, nil
}

// NormalizePstn strips the tel: protocol prefix and guarantees a
// leading "+". Teams is known to sometimes omit the plus on external
// numbers.
func NormalizePstn(number string) string {
	n := strings.TrimPrefix(number, "tel:")
	n = strings.TrimSpace(n)
	if n == "" {
		return n
	}
	if !strings.HasPrefix(n, "+") {
		n = "+" + n
	}
	return n
}

// Node renders the terminal or continuation node for a resolved target.
// Nested voice apps render as the target app's entry node so the edge
// joins the sub-diagram emitted when the app is expanded.
func (t CallTarget) Node() Node {
	switch t.Kind {
	case TargetUser:
		return Node{
			ID:    NodeID("user", t.ID),
			Label: "User <br> " + SanitizeLabel(t.Name),
			Shape: ShapeRect,
			Class: "target",
		}
	case TargetExternalPstn:
		return Node{
			ID:    NodeID("pstn", t.ID),
			Label: "External Number <br> " + SanitizeLabel(t.Name),
			Shape: ShapeRect,
			Class: "target",
		}
	case TargetSharedVoicemail:
		return Node{
			ID:    NodeID("voicemail", t.ID),
			Label: "Shared Voicemail <br> " + SanitizeLabel(t.Name),
			Shape: ShapeTerminal,
			Class: "terminal",
		}
	case TargetNestedVoiceApp:
		return EntryNode(*t.App)
	default:
		return Node{
			ID:    NodeID("disconnect", t.ID),
			Label: "Disconnect Call",
			Shape: ShapeTerminal,
			Class: "terminal",
		}
	}
}

// EntryNode renders a voice app's entry point. Every expansion of the
// app and every edge that transfers into it share this node, which is
// what stitches the sub-diagrams together.
func EntryNode(app msteams.VoiceApp) Node {
	kind := "Auto Attendant"
	if app.Kind == msteams.KindCallQueue {
		kind = "Call Queue"
	}
	label := kind + " <br> " + SanitizeLabel(app.Name)
	if len(app.PhoneNumbers) > 0 {
		numbers := make([]string, 0, len(app.PhoneNumbers))
		for _, n := range app.PhoneNumbers {
			numbers = append(numbers, NormalizePstn(n))
		}
		label += " <br> " + strings.Join(numbers, ", ")
	}
	return Node{
		ID:    NodeID("entry", app.ID),
		Label: label,
		Shape: ShapeSubroutine,
		Class: "entry",
	}
}
