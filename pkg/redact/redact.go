// Package redact masks sensitive values in request data before it is logged.
package redact

import "net/url"

// DefaultFill replaces the value of every hidden field unless Options.FillWith is set.
const DefaultFill = "****"

// Options tunes HideFieldsWith.
//
// Huge rebuilds the result from scratch instead of copying the whole input and
// overwriting the hidden fields afterwards. The output is identical in both
// modes; Huge avoids a second pass over large payloads.
type Options struct {
	Huge     bool
	FillWith string
}

// HideFields returns a copy of data with the listed fields masked.
func HideFields(data map[string]any, fields ...string) map[string]any {
	return HideFieldsWith(data, Options{}, fields...)
}

// HideFieldsWith returns a copy of data with the listed fields replaced by the
// fill value. Fields absent from data are ignored and never added. The input
// map is not modified.
func HideFieldsWith(data map[string]any, opts Options, fields ...string) map[string]any {
	fill := opts.FillWith
	if fill == "" {
		fill = DefaultFill
	}

	if opts.Huge {
		hidden := make(map[string]struct{}, len(fields))
		for _, field := range fields {
			hidden[field] = struct{}{}
		}

		out := make(map[string]any, len(data))
		for key, value := range data {
			if _, ok := hidden[key]; ok {
				out[key] = fill
				continue
			}
			out[key] = value
		}
		return out
	}

	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = value
	}
	for _, field := range fields {
		if _, ok := out[field]; ok {
			out[field] = fill
		}
	}
	return out
}

// Values masks form or query values. Each hidden key keeps a single fill entry.
func Values(values url.Values, fields ...string) url.Values {
	out := make(url.Values, len(values))
	for key, vals := range values {
		out[key] = append([]string(nil), vals...)
	}
	for _, field := range fields {
		if _, ok := out[field]; ok {
			out[field] = []string{DefaultFill}
		}
	}
	return out
}

// FlattenValues converts url.Values into a map suitable for structured logging.
// Single values are unwrapped; repeated keys keep their slice.
func FlattenValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			out[key] = vals[0]
			continue
		}
		out[key] = vals
	}
	return out
}
