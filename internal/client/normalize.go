// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package client

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"io"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinebrain/internal/models"
)

// Shape identifies which response layout a body matched.
type Shape string

const (
	ShapeArray           Shape = "array"
	ShapeRecommendations Shape = "recommendations"
	ShapeResults         Shape = "results"
	ShapeCategories      Shape = "categories"
	ShapeData            Shape = "data"
	ShapeUnknown         Shape = "unknown"
)

// Normalized is the result of normalizing one response body.
type Normalized struct {
	Shape Shape
	Items []models.ContentItem

	// Skipped counts array elements that were not decodable content items.
	Skipped int
}

// shapeDecoder decodes one known layout. ok is false when the body does not
// have that layout.
type shapeDecoder struct {
	shape  Shape
	decode func(obj map[string]json.RawMessage) (raw []json.RawMessage, ok bool)
}

// objectShapes are tried in order after the bare array check.
var objectShapes = []shapeDecoder{
	{ShapeRecommendations, listField("recommendations")},
	{ShapeResults, listField("results")},
	{ShapeCategories, decodeCategories},
	{ShapeData, decodeDataContent},
}

// Normalize flattens a response body into content items. It never fails:
// unrecognized bodies yield ShapeUnknown and no items.
func Normalize(body []byte) Normalized {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Normalized{Shape: ShapeUnknown}
	}

	if body[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return Normalized{Shape: ShapeUnknown}
		}
		return decodeItems(ShapeArray, raw)
	}

	if body[0] != '{' {
		return Normalized{Shape: ShapeUnknown}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return Normalized{Shape: ShapeUnknown}
	}
	for _, sd := range objectShapes {
		if raw, ok := sd.decode(obj); ok {
			return decodeItems(sd.shape, raw)
		}
	}
	return Normalized{Shape: ShapeUnknown}
}

func listField(name string) func(map[string]json.RawMessage) ([]json.RawMessage, bool) {
	return func(obj map[string]json.RawMessage) ([]json.RawMessage, bool) {
		return asList(obj[name])
	}
}

// asList decodes raw as a JSON array. Missing, null and non-array values do not match.
func asList(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	return list, true
}

// decodeCategories flattens {"categories": {"a": [...], "b": [...]}} keeping
// the category order of the document. Non-list categories are ignored.
// Key order needs a token stream, which is walked with encoding/json.
func decodeCategories(obj map[string]json.RawMessage) ([]json.RawMessage, bool) {
	raw := bytes.TrimSpace(obj["categories"])
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}

	dec := stdjson.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != stdjson.Delim('{') {
		return nil, false
	}

	var out []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil { // category name
			return nil, false
		}
		var value stdjson.RawMessage
		if err := dec.Decode(&value); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, false
		}
		if list, ok := asList(json.RawMessage(value)); ok {
			out = append(out, list...)
		}
	}
	return out, true
}

// decodeDataContent handles {"data": {"priority_content": [...], "all_content": [...]}}.
// Priority content comes first; overlap is left to the deduplicator.
func decodeDataContent(obj map[string]json.RawMessage) ([]json.RawMessage, bool) {
	raw := bytes.TrimSpace(obj["data"])
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false
	}
	priority, hasPriority := asList(data["priority_content"])
	all, hasAll := asList(data["all_content"])
	if !hasPriority && !hasAll {
		return nil, false
	}
	out := make([]json.RawMessage, 0, len(priority)+len(all))
	out = append(out, priority...)
	out = append(out, all...)
	return out, true
}

func decodeItems(shape Shape, raw []json.RawMessage) Normalized {
	n := Normalized{Shape: shape, Items: make([]models.ContentItem, 0, len(raw))}
	for _, r := range raw {
		var item models.ContentItem
		if err := json.Unmarshal(r, &item); err != nil {
			n.Skipped++
			continue
		}
		n.Items = append(n.Items, item)
	}
	return n
}
