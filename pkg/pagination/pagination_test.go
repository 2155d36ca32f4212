// Copyright (c) 2026 Tikra. All rights reserved.

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tikra-app/tikra/pkg/pagination"
)

/*
TestFromRequest verifies the clamping rules for the limit/offset parameters.
*/
func TestFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "/api/entries", pagination.DefaultLimit, 0},
		{"explicit", "/api/entries?limit=25&offset=75", 25, 75},
		{"max_limit", "/api/entries?limit=100", pagination.MaxLimit, 0},
		{"over_max", "/api/entries?limit=5000", pagination.DefaultLimit, 0},
		{"zero_limit", "/api/entries?limit=0", pagination.DefaultLimit, 0},
		{"negative", "/api/entries?limit=-5&offset=-10", pagination.DefaultLimit, 0},
		{"garbage", "/api/entries?limit=abc&offset=xyz", pagination.DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", tt.target, nil)
			params := pagination.FromRequest(request)

			assert.Equal(t, tt.wantLimit, params.Limit)
			assert.Equal(t, tt.wantOffset, params.Offset)
		})
	}
}

/*
TestNewMeta verifies the hasMore computation across page boundaries.
*/
func TestNewMeta(t *testing.T) {
	tests := []struct {
		name        string
		limit       int
		offset      int
		total       int
		wantHasMore bool
	}{
		{"first_of_many", 50, 0, 120, true},
		{"middle_page", 50, 50, 120, true},
		{"last_page", 50, 100, 120, false},
		{"exact_fit", 50, 0, 50, false},
		{"empty", 50, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := pagination.NewMeta(tt.limit, tt.offset, tt.total)

			assert.Equal(t, tt.total, meta.Total)
			assert.Equal(t, tt.wantHasMore, meta.HasMore)
		})
	}
}
