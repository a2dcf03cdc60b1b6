package labs

import "github.com/nephroinnovate/renal-console/internal/platform/fhir"

// Common LOINC codes surfaced on the renal dashboard.
const (
	CodeCreatinine = "2160-0"
	CodeUrea       = "3094-0"
	CodeEGFR       = "33914-3"
	CodePotassium  = "2823-3"
	CodeHemoglobin = "718-7"
)

// LabResult is the flat view of a FHIR Observation with a valueQuantity.
// Observations carry their meaning in nested coding/quantity structures, so
// the mapping here is hand-rolled rather than driven by fhir.Mapping.
type LabResult struct {
	ID            string  `json:"id,omitempty"`
	PatientID     string  `json:"patientId,omitempty"`
	Code          string  `json:"code,omitempty"`
	Name          string  `json:"name,omitempty"`
	Value         float64 `json:"value"`
	Unit          string  `json:"unit,omitempty"`
	Status        string  `json:"status,omitempty"`
	EffectiveDate string  `json:"effectiveDate,omitempty"`
}

// FromResource flattens a decoded Observation. Missing pieces leave their
// fields zero rather than failing; upstream data is not always complete.
func FromResource(raw map[string]interface{}) *LabResult {
	r := &LabResult{
		ID:     fhir.FlatString(raw, "id"),
		Status: fhir.FlatString(raw, "status"),
	}
	if s, ok := raw["effectiveDateTime"].(string); ok {
		r.EffectiveDate = s
	}
	if subject, ok := raw["subject"].(map[string]interface{}); ok {
		if ref, ok := subject["reference"].(string); ok {
			r.PatientID = fhir.ParseReference(ref)
		}
	}
	if code, ok := raw["code"].(map[string]interface{}); ok {
		if codings, ok := code["coding"].([]interface{}); ok && len(codings) > 0 {
			if coding, ok := codings[0].(map[string]interface{}); ok {
				r.Code = fhir.FlatString(coding, "code")
				r.Name = fhir.FlatString(coding, "display")
			}
		}
		if r.Name == "" {
			r.Name = fhir.FlatString(code, "text")
		}
	}
	if qty, ok := raw["valueQuantity"].(map[string]interface{}); ok {
		r.Value = fhir.FlatFloat(qty, "value")
		r.Unit = fhir.FlatString(qty, "unit")
	}
	return r
}

// ToResource expands the flat result into an Observation write payload.
func (r *LabResult) ToResource() map[string]interface{} {
	resource := map[string]interface{}{
		"resourceType": "Observation",
		"status":       r.Status,
		"code": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System:  "http://loinc.org",
				Code:    r.Code,
				Display: r.Name,
			}},
			Text: r.Name,
		},
		"valueQuantity": map[string]interface{}{
			"value": r.Value,
			"unit":  r.Unit,
		},
	}
	if r.ID != "" {
		resource["id"] = r.ID
	}
	if r.PatientID != "" {
		resource["subject"] = fhir.Reference{
			Reference: fhir.FormatReference("Patient", r.PatientID),
		}
	}
	if r.EffectiveDate != "" {
		resource["effectiveDateTime"] = r.EffectiveDate
	}
	return resource
}
