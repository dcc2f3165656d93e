// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package validation

import (
	"errors"
	"strings"
	"testing"
)

type rowRequest struct {
	ID       string `json:"id" validate:"required,rowid"`
	Endpoint string `json:"endpoint" validate:"required,endpoint"`
	Priority int    `json:"priority" validate:"min=0,max=100"`
	Sort     string `json:"sort" validate:"omitempty,oneof=new_releases upcoming"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       rowRequest
		wantField string
		wantMsg   string
	}{
		{
			name: "valid relative endpoint",
			req:  rowRequest{ID: "trending", Endpoint: "/recommendations/trending", Priority: 1},
		},
		{
			name: "valid absolute endpoint",
			req:  rowRequest{ID: "new_releases", Endpoint: "https://api.example.com/new", Sort: "new_releases"},
		},
		{
			name:      "missing id",
			req:       rowRequest{Endpoint: "/x"},
			wantField: "id",
			wantMsg:   "id is required",
		},
		{
			name:      "bad row id",
			req:       rowRequest{ID: "Top Picks", Endpoint: "/x"},
			wantField: "id",
			wantMsg:   "lowercase",
		},
		{
			name:      "bad endpoint",
			req:       rowRequest{ID: "a", Endpoint: "trending"},
			wantField: "endpoint",
			wantMsg:   "API path",
		},
		{
			name:      "priority too high",
			req:       rowRequest{ID: "a", Endpoint: "/x", Priority: 101},
			wantField: "priority",
			wantMsg:   "at most 100",
		},
		{
			name:      "unknown sort",
			req:       rowRequest{ID: "a", Endpoint: "/x", Sort: "random"},
			wantField: "sort",
			wantMsg:   "one of",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *RequestValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *RequestValidationError, got %T (%v)", err, err)
			}
			if ve.Fields[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", ve.Fields[0].Field, tt.wantField)
			}
			if !strings.Contains(ve.Error(), tt.wantMsg) {
				t.Errorf("message %q does not contain %q", ve.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRequestValidationError_Details(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&rowRequest{})
	var ve *RequestValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields, ok := ve.Details()["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("expected two field entries, got %#v", ve.Details())
	}
}

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("expected the same validator instance")
	}
}
