package patients

import "github.com/nephroinnovate/renal-console/internal/platform/fhir"

// Identifier and extension systems used on the platform's Patient resources.
const (
	SystemMRN            = "urn:nephroinnovate:mrn"
	ExtDryWeightKg       = "urn:nephroinnovate:dry-weight-kg"
	ExtFirstDialysisDate = "urn:nephroinnovate:first-dialysis"
	ExtVascularAccess    = "urn:nephroinnovate:vascular-access"
)

// Patient is the flat record shape the console works with. The wire form
// is a FHIR Patient resource; Mapping below translates between the two.
type Patient struct {
	ID                string `json:"id,omitempty"`
	Active            bool   `json:"active"`
	MRN               string `json:"mrn,omitempty"`
	FirstName         string `json:"firstName,omitempty"`
	LastName          string `json:"lastName,omitempty"`
	Gender            string `json:"gender,omitempty"`
	BirthDate         string `json:"birthDate,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	DryWeightKg       int    `json:"dryWeightKg,omitempty"`
	FirstDialysisDate string `json:"firstDialysisDate,omitempty"`
	VascularAccess    string `json:"vascularAccess,omitempty"`
	InstitutionID     string `json:"institutionId,omitempty"`
}

// Mapping returns the flatten/expand rules for Patient resources.
func Mapping() fhir.Mapping {
	return fhir.Mapping{
		ResourceType: "Patient",
		Name:         true,
		Telecom: map[string]string{
			"phone": "phone",
			"email": "email",
		},
		Identifiers: map[string]string{
			SystemMRN: "mrn",
		},
		Extensions: map[string]string{
			ExtDryWeightKg:       "dryWeightKg",
			ExtFirstDialysisDate: "firstDialysisDate",
			ExtVascularAccess:    "vascularAccess",
		},
		Passthrough: []string{"id", "active", "gender", "birthDate"},
	}
}

// FromResource flattens a decoded Patient resource.
func FromResource(raw map[string]interface{}) *Patient {
	flat := fhir.NormalizeRecord(raw, Mapping())
	p := &Patient{
		ID:                fhir.FlatString(flat, "id"),
		Active:            fhir.FlatBool(flat, "active"),
		MRN:               fhir.FlatString(flat, "mrn"),
		FirstName:         fhir.FlatString(flat, "firstName"),
		LastName:          fhir.FlatString(flat, "lastName"),
		Gender:            fhir.FlatString(flat, "gender"),
		BirthDate:         fhir.FlatString(flat, "birthDate"),
		Phone:             fhir.FlatString(flat, "phone"),
		Email:             fhir.FlatString(flat, "email"),
		DryWeightKg:       fhir.FlatInt(flat, "dryWeightKg"),
		FirstDialysisDate: fhir.FlatString(flat, "firstDialysisDate"),
		VascularAccess:    fhir.FlatString(flat, "vascularAccess"),
	}
	// managingOrganization sits outside the generic mapping.
	if org, ok := raw["managingOrganization"].(map[string]interface{}); ok {
		if ref, ok := org["reference"].(string); ok {
			p.InstitutionID = fhir.ParseReference(ref)
		}
	}
	return p
}

// ToResource expands the flat record into a Patient write payload.
func (p *Patient) ToResource() map[string]interface{} {
	flat := map[string]interface{}{
		"active": p.Active,
	}
	setIfSet := func(key, v string) {
		if v != "" {
			flat[key] = v
		}
	}
	setIfSet("id", p.ID)
	setIfSet("mrn", p.MRN)
	setIfSet("firstName", p.FirstName)
	setIfSet("lastName", p.LastName)
	setIfSet("gender", p.Gender)
	setIfSet("birthDate", p.BirthDate)
	setIfSet("phone", p.Phone)
	setIfSet("email", p.Email)
	setIfSet("firstDialysisDate", p.FirstDialysisDate)
	setIfSet("vascularAccess", p.VascularAccess)
	if p.DryWeightKg > 0 {
		flat["dryWeightKg"] = p.DryWeightKg
	}

	resource := fhir.DenormalizeRecord(flat, Mapping())
	if p.InstitutionID != "" {
		resource["managingOrganization"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", p.InstitutionID),
		}
	}
	return resource
}
