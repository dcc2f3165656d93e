// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/cinebrain/internal/models"
)

type collectionRequest struct {
	ContentID models.ContentID `json:"content_id"`
}

type interactionRequest struct {
	ContentID       models.ContentID       `json:"content_id"`
	InteractionType models.InteractionType `json:"interaction_type"`
}

func (c *Client) collectionEndpoint(kind models.CollectionKind) (string, error) {
	switch kind {
	case models.CollectionFavorites:
		return c.endpoints.Favorites, nil
	case models.CollectionWatchlist:
		return c.endpoints.Watchlist, nil
	default:
		return "", fmt.Errorf("unknown collection %q", kind)
	}
}

// AddToCollection adds id to the user's collection of the given kind.
func (c *Client) AddToCollection(ctx context.Context, kind models.CollectionKind, id models.ContentID) (*models.MutationResult, error) {
	endpoint, err := c.collectionEndpoint(kind)
	if err != nil {
		return nil, err
	}
	return c.mutate(ctx, requestConfig{
		method:   http.MethodPost,
		endpoint: endpoint,
		body:     collectionRequest{ContentID: id},
	})
}

// RemoveFromCollection removes id from the user's collection of the given kind.
func (c *Client) RemoveFromCollection(ctx context.Context, kind models.CollectionKind, id models.ContentID) (*models.MutationResult, error) {
	endpoint, err := c.collectionEndpoint(kind)
	if err != nil {
		return nil, err
	}
	return c.mutate(ctx, requestConfig{
		method:   http.MethodDelete,
		endpoint: strings.TrimRight(endpoint, "/") + "/" + id.String(),
	})
}

// RecordInteraction reports a user interaction (view, like, ...) with id.
func (c *Client) RecordInteraction(ctx context.Context, id models.ContentID, typ models.InteractionType) (*models.MutationResult, error) {
	return c.mutate(ctx, requestConfig{
		method:   http.MethodPost,
		endpoint: c.endpoints.Interactions,
		body:     interactionRequest{ContentID: id, InteractionType: typ},
	})
}

// ListCollection loads the user's collection of the given kind.
func (c *Client) ListCollection(ctx context.Context, kind models.CollectionKind) ([]models.ContentItem, error) {
	endpoint, err := c.collectionEndpoint(kind)
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, endpoint, nil, 0)
}

// mutate executes a mutation. A 2xx answer with "success": false is
// returned as an ErrAPI error alongside the decoded result. An empty 2xx
// body counts as success.
func (c *Client) mutate(ctx context.Context, rc requestConfig) (*models.MutationResult, error) {
	body, err := c.do(ctx, rc)
	if err != nil {
		return nil, err
	}

	result := models.MutationResult{Success: true}
	if err := decodeJSON(body, &result); err != nil {
		return nil, &Error{Kind: ErrMalformedResponse, Method: rc.method, Endpoint: rc.endpoint, Err: err}
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return &result, &Error{Kind: ErrAPI, Method: rc.method, Endpoint: rc.endpoint, StatusCode: http.StatusOK, Message: msg}
	}
	return &result, nil
}
