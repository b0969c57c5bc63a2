// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"context"
	"errors"
)

// Resolver determines the remote endpoint to dial. Implementations
// return an error when their source of information is missing or
// unusable; they never substitute a default.
type Resolver interface {
	Resolve(ctx context.Context) (Endpoint, error)
}

// ErrNotFound is wrapped by resolvers whose source exists but holds no
// usable address.
var ErrNotFound = errors.New("no usable address")

// Static resolves to a fixed endpoint. It fails when Host is empty so a
// missing static host falls through to the next strategy.
type Static struct {
	Endpoint Endpoint
}

// Resolve returns the configured endpoint.
func (s Static) Resolve(ctx context.Context) (Endpoint, error) {
	if s.Endpoint.Host == "" {
		return Endpoint{}, errors.New("static: no host configured")
	}
	if err := s.Endpoint.Validate(); err != nil {
		return Endpoint{}, err
	}
	return s.Endpoint, nil
}

// Named pairs a resolver with the strategy name used in configuration
// and log output.
type Named struct {
	Name     string
	Resolver Resolver
}
