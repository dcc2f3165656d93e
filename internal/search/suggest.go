// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package search

import (
	"slices"
	"strings"
	"sync"
)

type suggestNode struct {
	children map[rune]*suggestNode
	query    string // original spelling, set on terminal nodes
	rank     int    // position in the recent list, 0 = most recent
	terminal bool
}

func newSuggestNode() *suggestNode {
	return &suggestNode{children: make(map[rune]*suggestNode)}
}

// Suggester completes a typed prefix from the recent queries. Matching is
// case-insensitive; completions come back most recent first.
type Suggester struct {
	mu   sync.RWMutex
	root *suggestNode
	size int
}

// NewSuggester returns an empty suggester.
func NewSuggester() *Suggester {
	return &Suggester{root: newSuggestNode()}
}

// Reset replaces the indexed queries with recent, ordered most recent first.
// Later case-insensitive duplicates are ignored.
func (s *Suggester) Reset(recent []string) {
	root := newSuggestNode()
	size := 0
	for rank, q := range recent {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		node := root
		for _, ch := range strings.ToLower(q) {
			child := node.children[ch]
			if child == nil {
				child = newSuggestNode()
				node.children[ch] = child
			}
			node = child
		}
		if node.terminal {
			continue
		}
		node.terminal = true
		node.query = q
		node.rank = rank
		size++
	}

	s.mu.Lock()
	s.root = root
	s.size = size
	s.mu.Unlock()
}

// Complete returns up to limit recent queries starting with prefix. An
// empty prefix matches everything. limit <= 0 means no limit.
func (s *Suggester) Complete(prefix string, limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.root
	for _, ch := range strings.ToLower(strings.TrimSpace(prefix)) {
		node = node.children[ch]
		if node == nil {
			return nil
		}
	}

	var found []*suggestNode
	collect(node, &found)
	slices.SortFunc(found, func(a, b *suggestNode) int {
		return a.rank - b.rank
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	out := make([]string, len(found))
	for i, n := range found {
		out[i] = n.query
	}
	return out
}

// Len returns the number of indexed queries.
func (s *Suggester) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func collect(node *suggestNode, out *[]*suggestNode) {
	if node.terminal {
		*out = append(*out, node)
	}
	for _, child := range node.children {
		collect(child, out)
	}
}
