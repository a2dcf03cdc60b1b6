package hdsessions

// SessionLog is one hemodialysis treatment record. Unlike the FHIR-backed
// resources, the sessions API speaks flat JSON and pages with a
// results/count envelope.
type SessionLog struct {
	ID                string  `json:"id,omitempty"`
	PatientID         string  `json:"patient_id"`
	InstitutionID     string  `json:"institution_id,omitempty"`
	StartedAt         string  `json:"started_at,omitempty"`
	EndedAt           string  `json:"ended_at,omitempty"`
	DurationMinutes   int     `json:"duration_minutes,omitempty"`
	PreWeightKg       float64 `json:"pre_weight_kg,omitempty"`
	PostWeightKg      float64 `json:"post_weight_kg,omitempty"`
	UltrafiltrationL  float64 `json:"ultrafiltration_l,omitempty"`
	BloodFlowRate     int     `json:"blood_flow_rate,omitempty"`
	DialysateFlowRate int     `json:"dialysate_flow_rate,omitempty"`
	AccessUsed        string  `json:"access_used,omitempty"`
	Complications     string  `json:"complications,omitempty"`
	Notes             string  `json:"notes,omitempty"`
}
