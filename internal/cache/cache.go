// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache provides a BadgerDB-backed caching decorator for the
// tenant directory.
//
// Tenant configuration changes rarely while diagrams are regenerated
// often, so snapshots are cached locally with a TTL. The cache is a
// transparent msteams.Directory: misses fall through to the wrapped
// directory and populate the store; lookup errors are never cached.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/voicegraph/callflow/internal/msteams"
	"github.com/voicegraph/callflow/pkg/logging"
)

// DefaultTTL is how long cached snapshots stay valid.
const DefaultTTL = 15 * time.Minute

// Config holds configuration for the directory cache.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory
	// is true.
	Path string

	// InMemory enables in-memory mode for tests.
	InMemory bool

	// TTL is the snapshot lifetime; zero means DefaultTTL.
	TTL time.Duration

	// Logger receives cache diagnostics. BadgerDB's own logging is
	// disabled.
	Logger *logging.Logger
}

// Directory is the caching decorator. It implements msteams.Directory.
type Directory struct {
	inner  msteams.Directory
	db     *badger.DB
	ttl    time.Duration
	logger *logging.Logger
}

// Open creates the cache store and wraps the given directory.
func Open(inner msteams.Directory, cfg Config) (*Directory, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for persistent cache")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{inner: inner, db: db, ttl: ttl, logger: logger}, nil
}

// Close releases the underlying store.
func (d *Directory) Close() error {
	return d.db.Close()
}

// Flush drops every cached snapshot.
func (d *Directory) Flush() error {
	return d.db.DropAll()
}

// get loads and decodes one cached entry. A miss or a decode failure
// both report !ok; corrupt entries are treated as absent.
func get[T any](d *Directory, key string) (*T, bool) {
	var out *T
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded T
			if err := json.Unmarshal(val, &decoded); err != nil {
				return err
			}
			out = &decoded
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			d.logger.Warn("cache read failed, falling through", "key", key, "error", err.Error())
		}
		return nil, false
	}
	return out, true
}

// put stores one encoded entry with the configured TTL. Write failures
// are logged and swallowed: the cache never breaks a lookup that
// already succeeded upstream.
func put(d *Directory, key string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		d.logger.Warn("cache encode failed", "key", key, "error", err.Error())
		return
	}
	err = d.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), encoded).WithTTL(d.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		d.logger.Warn("cache write failed", "key", key, "error", err.Error())
	}
}

// GetAutoAttendant implements msteams.Directory.
func (d *Directory) GetAutoAttendant(ctx context.Context, idOrName string) (*msteams.AutoAttendant, error) {
	key := "aa:" + idOrName
	if cached, ok := get[msteams.AutoAttendant](d, key); ok {
		return cached, nil
	}
	aa, err := d.inner.GetAutoAttendant(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	put(d, key, aa)
	if aa.ID != idOrName {
		put(d, "aa:"+aa.ID, aa)
	}
	return aa, nil
}

// GetCallQueue implements msteams.Directory.
func (d *Directory) GetCallQueue(ctx context.Context, idOrName string) (*msteams.CallQueue, error) {
	key := "cq:" + idOrName
	if cached, ok := get[msteams.CallQueue](d, key); ok {
		return cached, nil
	}
	cq, err := d.inner.GetCallQueue(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	put(d, key, cq)
	if cq.ID != idOrName {
		put(d, "cq:"+cq.ID, cq)
	}
	return cq, nil
}

// GetUser implements msteams.Directory.
func (d *Directory) GetUser(ctx context.Context, id string) (*msteams.User, error) {
	key := "user:" + id
	if cached, ok := get[msteams.User](d, key); ok {
		return cached, nil
	}
	user, err := d.inner.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	put(d, key, user)
	return user, nil
}

// GetGroup implements msteams.Directory.
func (d *Directory) GetGroup(ctx context.Context, id string) (*msteams.Group, error) {
	key := "group:" + id
	if cached, ok := get[msteams.Group](d, key); ok {
		return cached, nil
	}
	group, err := d.inner.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	put(d, key, group)
	return group, nil
}

// ListAutoAttendants implements msteams.Directory. Listings are not
// cached: they seed interactive pickers where staleness is visible.
func (d *Directory) ListAutoAttendants(ctx context.Context) ([]msteams.VoiceApp, error) {
	return d.inner.ListAutoAttendants(ctx)
}

// ListCallQueues implements msteams.Directory.
func (d *Directory) ListCallQueues(ctx context.Context) ([]msteams.VoiceApp, error) {
	return d.inner.ListCallQueues(ctx)
}

// FindApplicationInstanceOwner implements msteams.Directory.
func (d *Directory) FindApplicationInstanceOwner(ctx context.Context, instanceID string) (*msteams.VoiceApp, error) {
	key := "owner:" + instanceID
	if cached, ok := get[msteams.VoiceApp](d, key); ok {
		return cached, nil
	}
	owner, err := d.inner.FindApplicationInstanceOwner(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	put(d, key, owner)
	return owner, nil
}

var _ msteams.Directory = (*Directory)(nil)
