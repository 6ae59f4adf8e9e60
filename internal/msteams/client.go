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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/voicegraph/callflow/pkg/logging"
)

// Default client tuning values.
const (
	// DefaultRequestTimeout bounds a single tenant API request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultRequestsPerSecond stays under the tenant API throttling
	// window for voice-configuration reads.
	DefaultRequestsPerSecond = 4

	// DefaultBurst allows short bursts while listing large tenants.
	DefaultBurst = 8
)

// ClientOptions configures the tenant API client.
type ClientOptions struct {
	// BaseURL is the tenant API root, e.g. the Graph voice endpoint or
	// a compatible proxy. Required.
	BaseURL string

	// Token is the bearer token for the session. Acquisition is out of
	// scope; the caller hands the client an already-valid token.
	Token string

	// HTTPClient overrides the default client (tests). Optional.
	HTTPClient *http.Client

	// RequestsPerSecond overrides the rate limit. Zero means default.
	RequestsPerSecond float64

	// Logger receives request-level debug logs. Optional.
	Logger *logging.Logger
}

// Client is the live Directory implementation backed by the tenant's
// voice-configuration API.
//
// Requests are rate-limited with a token bucket so that deep traversals
// over large tenants do not trip API throttling. The client performs
// pure reads and never mutates tenant state.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewClient creates a tenant API client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("msteams: BaseURL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("msteams: invalid BaseURL: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), DefaultBurst),
		logger:  logger,
	}, nil
}

// GetAutoAttendant fetches an auto attendant by identity, falling back
// to a display-name search when the identity lookup misses.
func (c *Client) GetAutoAttendant(ctx context.Context, idOrName string) (*AutoAttendant, error) {
	var aa AutoAttendant
	err := c.get(ctx, "/voice/autoAttendants/"+url.PathEscape(idOrName), &aa)
	if err == nil {
		return &aa, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	apps, err := c.ListAutoAttendants(ctx)
	if err != nil {
		return nil, err
	}
	for _, app := range apps {
		if strings.EqualFold(app.Name, idOrName) {
			var named AutoAttendant
			if err := c.get(ctx, "/voice/autoAttendants/"+url.PathEscape(app.ID), &named); err != nil {
				return nil, err
			}
			return &named, nil
		}
	}
	return nil, &NotFoundError{Kind: "auto attendant", ID: idOrName}
}

// GetCallQueue fetches a call queue by identity, falling back to a
// display-name search when the identity lookup misses.
func (c *Client) GetCallQueue(ctx context.Context, idOrName string) (*CallQueue, error) {
	var cq CallQueue
	err := c.get(ctx, "/voice/callQueues/"+url.PathEscape(idOrName), &cq)
	if err == nil {
		return &cq, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	apps, err := c.ListCallQueues(ctx)
	if err != nil {
		return nil, err
	}
	for _, app := range apps {
		if strings.EqualFold(app.Name, idOrName) {
			var named CallQueue
			if err := c.get(ctx, "/voice/callQueues/"+url.PathEscape(app.ID), &named); err != nil {
				return nil, err
			}
			return &named, nil
		}
	}
	return nil, &NotFoundError{Kind: "call queue", ID: idOrName}
}

// GetUser fetches a directory user by object id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := c.get(ctx, "/users/"+url.PathEscape(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetGroup fetches a directory group by object id.
func (c *Client) GetGroup(ctx context.Context, id string) (*Group, error) {
	var g Group
	if err := c.get(ctx, "/groups/"+url.PathEscape(id), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListAutoAttendants enumerates the tenant's auto attendants.
func (c *Client) ListAutoAttendants(ctx context.Context) ([]VoiceApp, error) {
	var out struct {
		Value []VoiceApp `json:"value"`
	}
	if err := c.get(ctx, "/voice/autoAttendants", &out); err != nil {
		return nil, err
	}
	for i := range out.Value {
		out.Value[i].Kind = KindAutoAttendant
	}
	return out.Value, nil
}

// ListCallQueues enumerates the tenant's call queues.
func (c *Client) ListCallQueues(ctx context.Context) ([]VoiceApp, error) {
	var out struct {
		Value []VoiceApp `json:"value"`
	}
	if err := c.get(ctx, "/voice/callQueues", &out); err != nil {
		return nil, err
	}
	for i := range out.Value {
		out.Value[i].Kind = KindCallQueue
	}
	return out.Value, nil
}

// FindApplicationInstanceOwner searches the auto-attendant collection
// first, then the call-queue collection, for the voice app owning the
// given resource-account object id.
func (c *Client) FindApplicationInstanceOwner(ctx context.Context, instanceID string) (*VoiceApp, error) {
	aas, err := c.ListAutoAttendants(ctx)
	if err != nil {
		return nil, err
	}
	for _, app := range aas {
		aa, err := c.GetAutoAttendant(ctx, app.ID)
		if err != nil {
			return nil, err
		}
		for _, inst := range aa.ApplicationInstanceIDs {
			if inst == instanceID {
				owner := aa.VoiceApp
				owner.Kind = KindAutoAttendant
				return &owner, nil
			}
		}
	}

	cqs, err := c.ListCallQueues(ctx)
	if err != nil {
		return nil, err
	}
	for _, app := range cqs {
		cq, err := c.GetCallQueue(ctx, app.ID)
		if err != nil {
			return nil, err
		}
		for _, inst := range cq.ApplicationInstanceIDs {
			if inst == instanceID {
				owner := cq.VoiceApp
				owner.Kind = KindCallQueue
				return &owner, nil
			}
		}
	}

	return nil, &NotFoundError{Kind: "application instance", ID: instanceID}
}

// get performs a rate-limited GET and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("msteams: rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("msteams: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("msteams: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("tenant API request",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Kind: "tenant object", ID: path}
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("msteams: GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("msteams: decoding %s response: %w", path, err)
	}
	return nil
}

var _ Directory = (*Client)(nil)
