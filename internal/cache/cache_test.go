// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicegraph/callflow/internal/msteams"
)

func openTestCache(t *testing.T, fake *msteams.Fake) *Directory {
	t.Helper()
	dir, err := Open(fake, Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })
	return dir
}

func TestCacheHitSkipsUpstream(t *testing.T) {
	ctx := context.Background()
	fake := msteams.NewFake().AddUser(&msteams.User{ID: "u-1", DisplayName: "Dana Ops"})
	dir := openTestCache(t, fake)

	first, err := dir.GetUser(ctx, "u-1")
	require.NoError(t, err)
	second, err := dir.GetUser(ctx, "u-1")
	require.NoError(t, err)

	assert.Equal(t, first.DisplayName, second.DisplayName)
	assert.Equal(t, 1, fake.Lookups["GetUser"], "second lookup must come from cache")
}

func TestCacheNameLookupPrimesIDKey(t *testing.T) {
	ctx := context.Background()
	fake := msteams.NewFake().AddAutoAttendant(&msteams.AutoAttendant{
		VoiceApp: msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
	})
	dir := openTestCache(t, fake)

	byName, err := dir.GetAutoAttendant(ctx, "Main Line")
	require.NoError(t, err)
	assert.Equal(t, "aa-1", byName.ID)

	// The id key was primed by the name lookup.
	_, err = dir.GetAutoAttendant(ctx, "aa-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Lookups["GetAutoAttendant"])
}

func TestCacheErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	fake := msteams.NewFake()
	dir := openTestCache(t, fake)

	_, err := dir.GetCallQueue(ctx, "cq-missing")
	require.Error(t, err)
	assert.True(t, msteams.IsNotFound(err))

	// The queue appears later; the earlier miss must not stick.
	fake.AddCallQueue(&msteams.CallQueue{VoiceApp: msteams.VoiceApp{ID: "cq-missing", Name: "Late Queue"}})
	cq, err := dir.GetCallQueue(ctx, "cq-missing")
	require.NoError(t, err)
	assert.Equal(t, "Late Queue", cq.Name)
}

func TestCacheOwnerLookup(t *testing.T) {
	ctx := context.Background()
	fake := msteams.NewFake().AddCallQueue(&msteams.CallQueue{
		VoiceApp:               msteams.VoiceApp{ID: "cq-1", Name: "Support Queue"},
		ApplicationInstanceIDs: []string{"ra-1"},
	})
	dir := openTestCache(t, fake)

	for range 2 {
		owner, err := dir.FindApplicationInstanceOwner(ctx, "ra-1")
		require.NoError(t, err)
		assert.Equal(t, "cq-1", owner.ID)
	}
	assert.Equal(t, 1, fake.Lookups["FindApplicationInstanceOwner"])
}

func TestCacheFlush(t *testing.T) {
	ctx := context.Background()
	fake := msteams.NewFake().AddGroup(&msteams.Group{ID: "g-1", DisplayName: "Support Mailbox"})
	dir := openTestCache(t, fake)

	_, err := dir.GetGroup(ctx, "g-1")
	require.NoError(t, err)
	require.NoError(t, dir.Flush())

	_, err = dir.GetGroup(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Lookups["GetGroup"], "flush must drop cached snapshots")
}

func TestCacheListingsPassThrough(t *testing.T) {
	ctx := context.Background()
	fake := msteams.NewFake().AddAutoAttendant(&msteams.AutoAttendant{
		VoiceApp: msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
	})
	dir := openTestCache(t, fake)

	for range 2 {
		apps, err := dir.ListAutoAttendants(ctx)
		require.NoError(t, err)
		assert.Len(t, apps, 1)
	}
	assert.Equal(t, 2, fake.Lookups["ListAutoAttendants"])
}
