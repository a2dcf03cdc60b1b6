package fhir

import "encoding/json"

// List is the canonical shape for any paginated response, regardless of
// which envelope the platform API used on the wire.
type List struct {
	Items    []interface{} `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// NormalizeList reconciles the platform's list-response envelopes into a
// single List. The shape tests run in a fixed precedence order so that a
// payload satisfying more than one test always resolves the same way:
//
//  1. {items, total}            — the console API's native envelope
//  2. {resourceType: "Bundle"}  — FHIR search results
//  3. {results, count}          — the legacy reporting envelope
//  4. a bare JSON array
//  5. anything else             — treated as a single record
//
// Malformed envelopes (a Bundle whose entry is not an array) produce an
// empty List rather than an error: list views degrade to empty, they do
// not crash.
func NormalizeList(raw interface{}) List {
	if arr, ok := raw.([]interface{}); ok {
		return List{Items: arr, Total: len(arr), Page: 1, PageSize: len(arr)}
	}

	m, ok := raw.(map[string]interface{})
	if !ok {
		if raw == nil {
			return emptyList()
		}
		return List{Items: []interface{}{raw}, Total: 1, Page: 1, PageSize: 1}
	}

	// Shape 1: {items, total}
	if items, ok := m["items"].([]interface{}); ok {
		if total, ok := intValue(m["total"]); ok {
			page, hasPage := intValue(m["page"])
			if !hasPage {
				page = 1
			}
			pageSize, hasSize := intValue(m["pageSize"])
			if !hasSize {
				pageSize = len(items)
			}
			return List{Items: items, Total: total, Page: page, PageSize: pageSize}
		}
	}

	// Shape 2: FHIR Bundle
	if rt, _ := m["resourceType"].(string); rt == "Bundle" {
		entries, ok := m["entry"].([]interface{})
		if !ok {
			return emptyList()
		}
		items := make([]interface{}, 0, len(entries))
		for _, e := range entries {
			entry, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			if res, ok := entry["resource"]; ok {
				items = append(items, res)
			}
		}
		total, hasTotal := intValue(m["total"])
		if !hasTotal {
			total = len(entries)
		}
		return List{Items: items, Total: total, Page: 1, PageSize: len(entries)}
	}

	// Shape 3: {results, count}
	if results, ok := m["results"].([]interface{}); ok {
		total, hasCount := intValue(m["count"])
		if !hasCount {
			total = len(results)
		}
		page, hasPage := intValue(m["page"])
		if !hasPage {
			page = 1
		}
		pageSize, hasSize := intValue(m["page_size"])
		if !hasSize {
			pageSize = len(results)
		}
		return List{Items: results, Total: total, Page: page, PageSize: pageSize}
	}

	// Shape 5: single record
	return List{Items: []interface{}{m}, Total: 1, Page: 1, PageSize: 1}
}

// NormalizeListJSON decodes raw JSON and normalizes it. Undecodable input
// degrades to an empty List.
func NormalizeListJSON(data []byte) List {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return emptyList()
	}
	return NormalizeList(raw)
}

func emptyList() List {
	return List{Items: []interface{}{}, Total: 0, Page: 1, PageSize: 0}
}

// intValue extracts an integer from a decoded JSON value. JSON numbers
// arrive as float64; string-typed numbers are not accepted.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
