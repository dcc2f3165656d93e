// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package services

import "context"

// BridgeService holds a set of observer registrations for as long as it
// runs. Subscribe is called on every start and must return the function
// that undoes it.
type BridgeService struct {
	name      string
	subscribe func() (dispose func())
}

// NewBridgeService creates a bridge.
func NewBridgeService(name string, subscribe func() (dispose func())) *BridgeService {
	return &BridgeService{name: name, subscribe: subscribe}
}

// Serve implements suture.Service.
func (b *BridgeService) Serve(ctx context.Context) error {
	dispose := b.subscribe()
	defer dispose()
	<-ctx.Done()
	return ctx.Err()
}

func (b *BridgeService) String() string {
	return b.name
}
