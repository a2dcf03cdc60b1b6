package fhir

import (
	"regexp"
	"sort"
	"strings"
)

// Mapping declares how a FHIR-style resource flattens into the flat record
// shape consumed by UI collaborators, and how a flat record expands back
// into an upstream write payload. Fields outside the mapping are dropped.
// The flatten/expand pair preserves values for everything the mapping
// covers, but flat records do not remember which value[x] an extension
// arrived as; expansion re-infers it from the value (see DenormalizeRecord).
type Mapping struct {
	// ResourceType is stamped onto expanded payloads.
	ResourceType string

	// Name maps name[0] to the firstName/lastName flat fields.
	Name bool

	// Telecom maps a contact-point system ("phone", "email") to a flat field.
	Telecom map[string]string

	// Identifiers maps an identifier system URI to a flat field.
	Identifiers map[string]string

	// Extensions maps an extension URL to a flat field. The flat value is
	// typed by whichever value[x] the wire form carries: valueDate,
	// valueInteger or valueString.
	Extensions map[string]string

	// Passthrough lists top-level fields copied verbatim in both directions.
	Passthrough []string
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeRecord flattens a bundled resource into a flat field mapping.
// Only the first name entry is considered; given names join with a space.
func NormalizeRecord(raw map[string]interface{}, m Mapping) map[string]interface{} {
	flat := make(map[string]interface{})

	for _, field := range m.Passthrough {
		if v, ok := raw[field]; ok {
			flat[field] = v
		}
	}

	if m.Name {
		if names, ok := raw["name"].([]interface{}); ok && len(names) > 0 {
			if name, ok := names[0].(map[string]interface{}); ok {
				if given, ok := name["given"].([]interface{}); ok {
					parts := make([]string, 0, len(given))
					for _, g := range given {
						if s, ok := g.(string); ok {
							parts = append(parts, s)
						}
					}
					if len(parts) > 0 {
						flat["firstName"] = strings.Join(parts, " ")
					}
				}
				if family, ok := name["family"].(string); ok && family != "" {
					flat["lastName"] = family
				}
			}
		}
	}

	if telecom, ok := raw["telecom"].([]interface{}); ok {
		for _, t := range telecom {
			cp, ok := t.(map[string]interface{})
			if !ok {
				continue
			}
			system, _ := cp["system"].(string)
			field, mapped := m.Telecom[system]
			if !mapped {
				continue
			}
			if _, seen := flat[field]; seen {
				continue
			}
			if value, ok := cp["value"].(string); ok {
				flat[field] = value
			}
		}
	}

	if identifiers, ok := raw["identifier"].([]interface{}); ok {
		for _, i := range identifiers {
			ident, ok := i.(map[string]interface{})
			if !ok {
				continue
			}
			system, _ := ident["system"].(string)
			field, mapped := m.Identifiers[system]
			if !mapped {
				continue
			}
			if _, seen := flat[field]; seen {
				continue
			}
			if value, ok := ident["value"].(string); ok {
				flat[field] = value
			}
		}
	}

	if extensions, ok := raw["extension"].([]interface{}); ok {
		for _, e := range extensions {
			ext, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			url, _ := ext["url"].(string)
			field, mapped := m.Extensions[url]
			if !mapped {
				continue
			}
			if v, ok := ext["valueDate"]; ok {
				flat[field] = v
			} else if v, ok := ext["valueInteger"]; ok {
				if n, ok := intValue(v); ok {
					flat[field] = n
				}
			} else if v, ok := ext["valueString"]; ok {
				flat[field] = v
			}
		}
	}

	return flat
}

// DenormalizeRecord expands a flat record back into the wire form, inverting
// NormalizeRecord for every field the mapping covers. Extension values carry
// no wire-type tag in the flat record, so the value[x] key is inferred from
// the value itself: an ISO-date-shaped string expands to valueDate, integers
// to valueInteger, any other string to valueString. A valueString whose
// content happens to look like a date therefore comes back as valueDate;
// none of the platform's mapped extensions carry such strings today, and a
// mapping that needs one should model it as a passthrough field instead.
func DenormalizeRecord(flat map[string]interface{}, m Mapping) map[string]interface{} {
	result := make(map[string]interface{})
	if m.ResourceType != "" {
		result["resourceType"] = m.ResourceType
	}

	for _, field := range m.Passthrough {
		if v, ok := flat[field]; ok {
			result[field] = v
		}
	}

	if m.Name {
		name := HumanName{}
		if first, ok := flat["firstName"].(string); ok && first != "" {
			name.Given = strings.Split(first, " ")
		}
		if last, ok := flat["lastName"].(string); ok {
			name.Family = last
		}
		if len(name.Given) > 0 || name.Family != "" {
			result["name"] = []HumanName{name}
		}
	}

	var telecom []ContactPoint
	for _, system := range sortedKeys(m.Telecom) {
		if value, ok := flat[m.Telecom[system]].(string); ok && value != "" {
			telecom = append(telecom, ContactPoint{System: system, Value: value})
		}
	}
	if len(telecom) > 0 {
		result["telecom"] = telecom
	}

	var identifiers []Identifier
	for _, system := range sortedKeys(m.Identifiers) {
		if value, ok := flat[m.Identifiers[system]].(string); ok && value != "" {
			identifiers = append(identifiers, Identifier{System: system, Value: value})
		}
	}
	if len(identifiers) > 0 {
		result["identifier"] = identifiers
	}

	var extensions []map[string]interface{}
	for _, url := range sortedKeys(m.Extensions) {
		v, ok := flat[m.Extensions[url]]
		if !ok || v == nil {
			continue
		}
		ext := map[string]interface{}{"url": url}
		switch val := v.(type) {
		case string:
			if datePattern.MatchString(val) {
				ext["valueDate"] = val
			} else {
				ext["valueString"] = val
			}
		case int:
			ext["valueInteger"] = val
		case float64:
			ext["valueInteger"] = int(val)
		default:
			continue
		}
		extensions = append(extensions, ext)
	}
	if len(extensions) > 0 {
		result["extension"] = extensions
	}

	return result
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
