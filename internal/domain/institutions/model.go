package institutions

import "github.com/nephroinnovate/renal-console/internal/platform/fhir"

const (
	SystemFacilityCode  = "urn:nephroinnovate:facility-code"
	ExtDialysisStations = "urn:nephroinnovate:dialysis-stations"
	ExtCenterType       = "urn:nephroinnovate:center-type"
)

// Institution is a dialysis centre. The wire form is a FHIR Organization.
type Institution struct {
	ID               string `json:"id,omitempty"`
	Active           bool   `json:"active"`
	Name             string `json:"name,omitempty"`
	FacilityCode     string `json:"facilityCode,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	DialysisStations int    `json:"dialysisStations,omitempty"`
	// CenterType is "hospital", "satellite" or "home-program".
	CenterType string `json:"centerType,omitempty"`
}

func Mapping() fhir.Mapping {
	return fhir.Mapping{
		ResourceType: "Organization",
		Telecom: map[string]string{
			"phone": "phone",
			"email": "email",
		},
		Identifiers: map[string]string{
			SystemFacilityCode: "facilityCode",
		},
		Extensions: map[string]string{
			ExtDialysisStations: "dialysisStations",
			ExtCenterType:       "centerType",
		},
		// Organization.name is a plain string, not a HumanName list.
		Passthrough: []string{"id", "active", "name"},
	}
}

func FromResource(raw map[string]interface{}) *Institution {
	flat := fhir.NormalizeRecord(raw, Mapping())
	return &Institution{
		ID:               fhir.FlatString(flat, "id"),
		Active:           fhir.FlatBool(flat, "active"),
		Name:             fhir.FlatString(flat, "name"),
		FacilityCode:     fhir.FlatString(flat, "facilityCode"),
		Phone:            fhir.FlatString(flat, "phone"),
		Email:            fhir.FlatString(flat, "email"),
		DialysisStations: fhir.FlatInt(flat, "dialysisStations"),
		CenterType:       fhir.FlatString(flat, "centerType"),
	}
}

func (i *Institution) ToResource() map[string]interface{} {
	flat := map[string]interface{}{
		"active": i.Active,
	}
	setIfSet := func(key, v string) {
		if v != "" {
			flat[key] = v
		}
	}
	setIfSet("id", i.ID)
	setIfSet("name", i.Name)
	setIfSet("facilityCode", i.FacilityCode)
	setIfSet("phone", i.Phone)
	setIfSet("email", i.Email)
	setIfSet("centerType", i.CenterType)
	if i.DialysisStations > 0 {
		flat["dialysisStations"] = i.DialysisStations
	}
	return fhir.DenormalizeRecord(flat, Mapping())
}
