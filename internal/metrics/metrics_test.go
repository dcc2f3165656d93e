// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFetch(t *testing.T) {
	before := testutil.ToFloat64(FetchRequestsTotal.WithLabelValues("/test/fetch", "GET", "ok"))

	RecordFetch("/test/fetch", "GET", "ok", 120*time.Millisecond)
	RecordFetch("/test/fetch", "GET", "ok", 80*time.Millisecond)

	after := testutil.ToFloat64(FetchRequestsTotal.WithLabelValues("/test/fetch", "GET", "ok"))
	if after-before != 2 {
		t.Errorf("expected 2 recorded fetches, got %v", after-before)
	}
}

func TestRecordDedupe(t *testing.T) {
	dupBefore := testutil.ToFloat64(DedupeDropped.WithLabelValues("duplicate"))
	missBefore := testutil.ToFloat64(DedupeDropped.WithLabelValues("missing_id"))

	RecordDedupe(3, 1)
	RecordDedupe(0, 0)

	if got := testutil.ToFloat64(DedupeDropped.WithLabelValues("duplicate")) - dupBefore; got != 3 {
		t.Errorf("duplicate drops = %v, want 3", got)
	}
	if got := testutil.ToFloat64(DedupeDropped.WithLabelValues("missing_id")) - missBefore; got != 1 {
		t.Errorf("missing id drops = %v, want 1", got)
	}
}

func TestRecordRowLoad(t *testing.T) {
	before := testutil.ToFloat64(RowLoads.WithLabelValues("high", "loaded"))
	RecordRowLoad("high", "loaded", 50*time.Millisecond)
	RecordRowLoad("high", "loaded", 0)
	if got := testutil.ToFloat64(RowLoads.WithLabelValues("high", "loaded")) - before; got != 2 {
		t.Errorf("row loads = %v, want 2", got)
	}
}

func TestRecordCollectionMutation(t *testing.T) {
	okBefore := testutil.ToFloat64(CollectionMutations.WithLabelValues("favorites", "add", "success"))
	failBefore := testutil.ToFloat64(CollectionMutations.WithLabelValues("favorites", "add", "failure"))

	RecordCollectionMutation("favorites", "add", nil)
	RecordCollectionMutation("favorites", "add", errors.New("boom"))

	if got := testutil.ToFloat64(CollectionMutations.WithLabelValues("favorites", "add", "success")) - okBefore; got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CollectionMutations.WithLabelValues("favorites", "add", "failure")) - failBefore; got != 1 {
		t.Errorf("failure = %v, want 1", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/rows", "200"))
	RecordAPIRequest("GET", "/api/v1/rows", 200, time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/rows", "200")) - before; got != 1 {
		t.Errorf("api requests = %v, want 1", got)
	}
}
