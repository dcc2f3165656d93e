// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

const keySep = "|"

// Key builds the cache key for a request: endpoint, a hash of the query
// parameters and whether the request was authenticated. Parameter order does
// not matter.
func Key(endpoint string, params map[string]string, authenticated bool) string {
	auth := "anon"
	if authenticated {
		auth = "auth"
	}
	return endpoint + keySep + paramsHash(params) + keySep + auth
}

// paramsHash hashes the JSON form of params. go-json writes map keys in
// sorted order, so equal maps hash equally.
func paramsHash(params map[string]string) string {
	if len(params) == 0 {
		return "-"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%v", params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:12])
}

// KeyEndpoint returns the endpoint part of a key built by Key.
func KeyEndpoint(key string) string {
	if i := strings.Index(key, keySep); i >= 0 {
		return key[:i]
	}
	return key
}

// KeyAuthenticated reports whether key was built for an authenticated request.
func KeyAuthenticated(key string) bool {
	return strings.HasSuffix(key, keySep+"auth")
}

// MatchEndpoint returns a ClearMatching predicate selecting every key of endpoint.
func MatchEndpoint(endpoint string) func(string) bool {
	return func(key string) bool { return KeyEndpoint(key) == endpoint }
}

// MatchAuthenticated selects every key built for authenticated requests.
func MatchAuthenticated(key string) bool {
	return KeyAuthenticated(key)
}
