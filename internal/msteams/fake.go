// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package msteams

import (
	"context"
	"strings"
	"sync"
)

// Fake is an in-memory Directory for tests. Populate it with snapshots
// via the Add helpers; lookups behave like the live client, including
// name fallback and ownership search.
type Fake struct {
	mu             sync.RWMutex
	autoAttendants map[string]*AutoAttendant
	callQueues     map[string]*CallQueue
	users          map[string]*User
	groups         map[string]*Group

	// Lookups counts calls per method name, for cache tests.
	Lookups map[string]int
}

// NewFake creates an empty Fake directory.
func NewFake() *Fake {
	return &Fake{
		autoAttendants: make(map[string]*AutoAttendant),
		callQueues:     make(map[string]*CallQueue),
		users:          make(map[string]*User),
		groups:         make(map[string]*Group),
		Lookups:        make(map[string]int),
	}
}

// AddAutoAttendant registers an auto attendant snapshot.
func (f *Fake) AddAutoAttendant(aa *AutoAttendant) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	aa.Kind = KindAutoAttendant
	f.autoAttendants[aa.ID] = aa
	return f
}

// AddCallQueue registers a call queue snapshot.
func (f *Fake) AddCallQueue(cq *CallQueue) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	cq.Kind = KindCallQueue
	f.callQueues[cq.ID] = cq
	return f
}

// AddUser registers a directory user.
func (f *Fake) AddUser(u *User) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return f
}

// AddGroup registers a directory group.
func (f *Fake) AddGroup(g *Group) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[g.ID] = g
	return f
}

func (f *Fake) count(method string) {
	f.Lookups[method]++
}

// GetAutoAttendant implements Directory.
func (f *Fake) GetAutoAttendant(ctx context.Context, idOrName string) (*AutoAttendant, error) {
	f.mu.Lock()
	f.count("GetAutoAttendant")
	f.mu.Unlock()

	f.mu.RLock()
	defer f.mu.RUnlock()
	if aa, ok := f.autoAttendants[idOrName]; ok {
		return aa, nil
	}
	for _, aa := range f.autoAttendants {
		if strings.EqualFold(aa.Name, idOrName) {
			return aa, nil
		}
	}
	return nil, &NotFoundError{Kind: "auto attendant", ID: idOrName}
}

// GetCallQueue implements Directory.
func (f *Fake) GetCallQueue(ctx context.Context, idOrName string) (*CallQueue, error) {
	f.mu.Lock()
	f.count("GetCallQueue")
	f.mu.Unlock()

	f.mu.RLock()
	defer f.mu.RUnlock()
	if cq, ok := f.callQueues[idOrName]; ok {
		return cq, nil
	}
	for _, cq := range f.callQueues {
		if strings.EqualFold(cq.Name, idOrName) {
			return cq, nil
		}
	}
	return nil, &NotFoundError{Kind: "call queue", ID: idOrName}
}

// GetUser implements Directory.
func (f *Fake) GetUser(ctx context.Context, id string) (*User, error) {
	f.mu.Lock()
	f.count("GetUser")
	f.mu.Unlock()

	f.mu.RLock()
	defer f.mu.RUnlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, &NotFoundError{Kind: "user", ID: id}
}

// GetGroup implements Directory.
func (f *Fake) GetGroup(ctx context.Context, id string) (*Group, error) {
	f.mu.Lock()
	f.count("GetGroup")
	f.mu.Unlock()

	f.mu.RLock()
	defer f.mu.RUnlock()
	if g, ok := f.groups[id]; ok {
		return g, nil
	}
	return nil, &NotFoundError{Kind: "group", ID: id}
}

// ListAutoAttendants implements Directory.
func (f *Fake) ListAutoAttendants(ctx context.Context) ([]VoiceApp, error) {
	f.mu.Lock()
	f.count("ListAutoAttendants")
	f.mu.Unlock()

	f.mu.RLock()
	defer f.mu.RUnlock()
	apps := make([]VoiceApp, 0, len(f.autoAttendants))
	for _, aa := range f.autoAttendants {
		apps = append(apps, aa.VoiceApp)
	}
	return apps, nil
}

// ListCallQueues implements Directory.
func (f *Fake) ListCallQueues(ctx context.Context) ([]VoiceApp, error) {
	f.mu.Lock()
	f.count("ListCallQueues")
	f.mu.Unlock()

	f.mu.RLock()
	defer f.mu.RUnlock()
	apps := make([]VoiceApp, 0, len(f.callQueues))
	for _, cq := range f.callQueues {
		apps = append(apps, cq.VoiceApp)
	}
	return apps, nil
}

// FindApplicationInstanceOwner implements Directory.
func (f *Fake) FindApplicationInstanceOwner(ctx context.Context, instanceID string) (*VoiceApp, error) {
	f.mu.Lock()
	f.count("FindApplicationInstanceOwner")
	f.mu.Unlock()

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, aa := range f.autoAttendants {
		for _, inst := range aa.ApplicationInstanceIDs {
			if inst == instanceID {
				app := aa.VoiceApp
				return &app, nil
			}
		}
	}
	for _, cq := range f.callQueues {
		for _, inst := range cq.ApplicationInstanceIDs {
			if inst == instanceID {
				app := cq.VoiceApp
				return &app, nil
			}
		}
	}
	return nil, &NotFoundError{Kind: "application instance", ID: instanceID}
}

var _ Directory = (*Fake)(nil)
