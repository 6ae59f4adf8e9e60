// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package msteams

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer builds a minimal tenant API with one AA and one CQ.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	aa := AutoAttendant{
		VoiceApp: VoiceApp{ID: "aa-1", Name: "Main Line", Kind: KindAutoAttendant},
		ApplicationInstanceIDs: []string{"ra-aa-1"},
	}
	cq := CallQueue{
		VoiceApp: VoiceApp{ID: "cq-1", Name: "Support Queue", Kind: KindCallQueue},
		ApplicationInstanceIDs: []string{"ra-cq-1"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/voice/autoAttendants", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"value": []VoiceApp{aa.VoiceApp}})
	})
	mux.HandleFunc("/voice/autoAttendants/aa-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(aa)
	})
	mux.HandleFunc("/voice/callQueues", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"value": []VoiceApp{cq.VoiceApp}})
	})
	mux.HandleFunc("/voice/callQueues/cq-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cq)
	})
	mux.HandleFunc("/users/u-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(User{ID: "u-1", DisplayName: "Dana Reeve"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(ClientOptions{
		BaseURL:           baseURL,
		Token:             "test-token",
		RequestsPerSecond: 1000, // no throttling in tests
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	assert.Error(t, err)
}

func TestGetAutoAttendantByID(t *testing.T) {
	srv := testServer(t)
	client := newTestClient(t, srv.URL)

	aa, err := client.GetAutoAttendant(context.Background(), "aa-1")
	require.NoError(t, err)
	assert.Equal(t, "Main Line", aa.Name)
}

func TestGetAutoAttendantByNameFallback(t *testing.T) {
	srv := testServer(t)
	client := newTestClient(t, srv.URL)

	aa, err := client.GetAutoAttendant(context.Background(), "main line")
	require.NoError(t, err)
	assert.Equal(t, "aa-1", aa.ID)
}

func TestGetUserSendsBearerToken(t *testing.T) {
	srv := testServer(t)
	client := newTestClient(t, srv.URL)

	u, err := client.GetUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Dana Reeve", u.DisplayName)
}

func TestGetUserNotFound(t *testing.T) {
	srv := testServer(t)
	client := newTestClient(t, srv.URL)

	_, err := client.GetUser(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err), "expected NotFoundError, got %v", err)
}

func TestFindApplicationInstanceOwner(t *testing.T) {
	srv := testServer(t)
	client := newTestClient(t, srv.URL)

	t.Run("auto attendant owner", func(t *testing.T) {
		owner, err := client.FindApplicationInstanceOwner(context.Background(), "ra-aa-1")
		require.NoError(t, err)
		assert.Equal(t, "aa-1", owner.ID)
		assert.Equal(t, KindAutoAttendant, owner.Kind)
	})

	t.Run("call queue owner", func(t *testing.T) {
		owner, err := client.FindApplicationInstanceOwner(context.Background(), "ra-cq-1")
		require.NoError(t, err)
		assert.Equal(t, "cq-1", owner.ID)
		assert.Equal(t, KindCallQueue, owner.Kind)
	})

	t.Run("no owner", func(t *testing.T) {
		_, err := client.FindApplicationInstanceOwner(context.Background(), "ra-orphan")
		assert.True(t, IsNotFound(err))
	})
}

func TestPromptIsConfigured(t *testing.T) {
	cases := []struct {
		name   string
		prompt *Prompt
		want   bool
	}{
		{"nil", nil, false},
		{"none", &Prompt{ActiveType: PromptTypeNone}, false},
		{"tts with text", &Prompt{ActiveType: PromptTypeTextToSpeech, TextToSpeech: "Hi"}, true},
		{"tts without text", &Prompt{ActiveType: PromptTypeTextToSpeech}, false},
		{"audio with file", &Prompt{ActiveType: PromptTypeAudioFile, AudioFile: &AudioFilePrompt{FileName: "g.wav"}}, true},
		{"audio without file", &Prompt{ActiveType: PromptTypeAudioFile}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.prompt.IsConfigured())
		})
	}
}

func TestDtmfKey(t *testing.T) {
	assert.Equal(t, "1", MenuOption{DtmfResponse: "Tone1"}.DtmfKey())
	assert.Equal(t, "0", MenuOption{DtmfResponse: "Tone0"}.DtmfKey())
	assert.Equal(t, "*", MenuOption{DtmfResponse: "ToneStar"}.DtmfKey())
	assert.Equal(t, "#", MenuOption{DtmfResponse: "TonePound"}.DtmfKey())
	assert.Equal(t, "Automatic", MenuOption{DtmfResponse: "Automatic"}.DtmfKey())
}
