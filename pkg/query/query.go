// Copyright (c) 2026 Tikra. All rights reserved.

/*
Package query parses URL query parameter values into domain-friendly slices.

List parameters arrive comma-separated (?tags=billing,deep); they funnel
through Clean so filters never see blank or padded values. Clean is also the
shared scrubbing pass for list fields arriving in JSON bodies, such as entry
tags.
*/
package query

import (
	"strings"

	"github.com/tikra-app/tikra/pkg/slice"
)

// Clean trims every value and drops the empties, preserving order. A slice
// with nothing left comes back nil.
func Clean(vals []string) []string {
	return slice.Filter(slice.Map(vals, strings.TrimSpace), func(val string) bool {
		return val != ""
	})
}

// StringSlice parses a single comma-separated query string into a cleaned
// slice of strings.
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}
	return Clean(strings.Split(val, ","))
}
