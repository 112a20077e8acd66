// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"net"
	"strings"
)

// RPResolver computes the RP ID and the acceptable origin set for an
// inbound request host. It is a pure function of the configuration and the
// host; it holds no state.
type RPResolver struct {
	cfg *Config
}

// NewRPResolver creates a resolver for the given configuration.
func NewRPResolver(cfg *Config) *RPResolver {
	return &RPResolver{cfg: cfg}
}

// RPID returns the Relying Party identifier for the request host:
// the configured override when set, else the request hostname with any
// port stripped, else the configured fallback.
func (r *RPResolver) RPID(host string) string {
	if r.cfg.RPID != "" {
		return r.cfg.RPID
	}
	if h := hostname(host); h != "" {
		return h
	}
	return r.cfg.FallbackRPID
}

// Origins returns the deduplicated union of the configured allow-list and
// the https origin derived from the request host. When the configured list
// is empty, DefaultOrigin stands in for it; the resolver never returns an
// empty set.
func (r *RPResolver) Origins(host string) []string {
	base := r.cfg.AllowedOrigins
	if len(base) == 0 {
		base = []string{DefaultOrigin}
	}

	origins := make([]string, 0, len(base)+1)
	seen := make(map[string]struct{}, len(base)+1)
	add := func(origin string) {
		if origin == "" {
			return
		}
		if _, ok := seen[origin]; ok {
			return
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}

	for _, origin := range base {
		add(strings.TrimSuffix(origin, "/"))
	}
	// The derived origin keeps any port: browsers include non-default
	// ports in the origin they assert.
	if h := stripScheme(host); h != "" {
		add("https://" + h)
	}
	return origins
}

func stripScheme(host string) string {
	host = strings.TrimSpace(strings.TrimSuffix(host, "/"))
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	return host
}

// hostname strips any scheme and port from a request host value.
func hostname(host string) string {
	host = stripScheme(host)
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
