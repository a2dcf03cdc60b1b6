package fhir

import (
	"encoding/json"
	"reflect"
	"testing"
)

var patientMapping = Mapping{
	ResourceType: "Patient",
	Name:         true,
	Telecom: map[string]string{
		"phone": "phone",
		"email": "email",
	},
	Identifiers: map[string]string{
		"urn:nephroinnovate:mrn": "mrn",
	},
	Extensions: map[string]string{
		"urn:nephroinnovate:dry-weight-kg":      "dryWeightKg",
		"urn:nephroinnovate:first-dialysis":     "firstDialysisDate",
		"urn:nephroinnovate:vascular-access":    "vascularAccess",
	},
	Passthrough: []string{"id", "active", "gender", "birthDate"},
}

func TestNormalizeRecord_Patient(t *testing.T) {
	raw := decode(t, `{
		"resourceType": "Patient",
		"id": "p1",
		"active": true,
		"gender": "female",
		"birthDate": "1961-04-02",
		"name": [{"use": "official", "family": "Okafor", "given": ["Adaeze", "N"]}],
		"telecom": [
			{"system": "phone", "value": "+2348012345678", "use": "mobile"},
			{"system": "email", "value": "adaeze@example.org"}
		],
		"identifier": [{"system": "urn:nephroinnovate:mrn", "value": "MRN-0042"}],
		"extension": [
			{"url": "urn:nephroinnovate:dry-weight-kg", "valueInteger": 58},
			{"url": "urn:nephroinnovate:first-dialysis", "valueDate": "2019-11-20"},
			{"url": "urn:nephroinnovate:vascular-access", "valueString": "AV fistula"}
		]
	}`).(map[string]interface{})

	flat := NormalizeRecord(raw, patientMapping)

	want := map[string]interface{}{
		"id":                "p1",
		"active":            true,
		"gender":            "female",
		"birthDate":         "1961-04-02",
		"firstName":         "Adaeze N",
		"lastName":          "Okafor",
		"phone":             "+2348012345678",
		"email":             "adaeze@example.org",
		"mrn":               "MRN-0042",
		"dryWeightKg":       58,
		"firstDialysisDate": "2019-11-20",
		"vascularAccess":    "AV fistula",
	}
	for k, v := range want {
		if !reflect.DeepEqual(flat[k], v) {
			t.Errorf("flat[%q] = %v, want %v", k, flat[k], v)
		}
	}
}

// Round-trip: denormalize(normalize(x)) reproduces every field the mapping
// covers.
func TestRecordRoundTrip(t *testing.T) {
	original := map[string]interface{}{
		"resourceType": "Patient",
		"id":           "p7",
		"active":       true,
		"name":         []interface{}{map[string]interface{}{"family": "Mensah", "given": []interface{}{"Kwame"}}},
		"telecom": []interface{}{
			map[string]interface{}{"system": "email", "value": "kwame@example.org"},
			map[string]interface{}{"system": "phone", "value": "+233201112222"},
		},
		"identifier": []interface{}{
			map[string]interface{}{"system": "urn:nephroinnovate:mrn", "value": "MRN-0099"},
		},
		"extension": []interface{}{
			map[string]interface{}{"url": "urn:nephroinnovate:dry-weight-kg", "valueInteger": float64(71)},
			map[string]interface{}{"url": "urn:nephroinnovate:first-dialysis", "valueDate": "2022-01-15"},
			map[string]interface{}{"url": "urn:nephroinnovate:vascular-access", "valueString": "central catheter"},
		},
	}

	flat := NormalizeRecord(original, patientMapping)
	restored := DenormalizeRecord(flat, patientMapping)

	// Compare through JSON so struct-built and map-built subtrees unify.
	normalize := func(v interface{}) interface{} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out interface{}
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return out
	}

	got := normalize(restored).(map[string]interface{})
	want := normalize(original).(map[string]interface{})

	for _, field := range []string{"resourceType", "id", "active", "name", "telecom", "identifier", "extension"} {
		if !reflect.DeepEqual(got[field], want[field]) {
			t.Errorf("round trip lost %q:\n got  %v\n want %v", field, got[field], want[field])
		}
	}
}

func TestNormalizeRecord_FirstNameEntryOnly(t *testing.T) {
	raw := decode(t, `{
		"name": [
			{"family": "Current", "given": ["Now"]},
			{"family": "Former", "given": ["Then"]}
		]
	}`).(map[string]interface{})

	flat := NormalizeRecord(raw, Mapping{Name: true})
	if flat["lastName"] != "Current" || flat["firstName"] != "Now" {
		t.Errorf("expected first name entry only, got %v", flat)
	}
}

func TestNormalizeRecord_FirstTelecomPerSystemWins(t *testing.T) {
	raw := decode(t, `{
		"telecom": [
			{"system": "phone", "value": "first"},
			{"system": "phone", "value": "second"}
		]
	}`).(map[string]interface{})

	flat := NormalizeRecord(raw, Mapping{Telecom: map[string]string{"phone": "phone"}})
	if flat["phone"] != "first" {
		t.Errorf("expected first phone to win, got %v", flat["phone"])
	}
}

func TestDenormalizeRecord_SkipsAbsentFields(t *testing.T) {
	flat := map[string]interface{}{"firstName": "Sole"}
	result := DenormalizeRecord(flat, patientMapping)

	if _, ok := result["telecom"]; ok {
		t.Error("expected no telecom for a record without contact fields")
	}
	if _, ok := result["identifier"]; ok {
		t.Error("expected no identifier block")
	}
	if _, ok := result["extension"]; ok {
		t.Error("expected no extension block")
	}
	names, ok := result["name"].([]HumanName)
	if !ok || len(names) != 1 || names[0].Given[0] != "Sole" {
		t.Errorf("unexpected name block: %v", result["name"])
	}
}

func TestDenormalizeRecord_ExtensionTyping(t *testing.T) {
	m := Mapping{Extensions: map[string]string{
		"urn:x:date": "d",
		"urn:x:int":  "i",
		"urn:x:str":  "s",
	}}
	flat := map[string]interface{}{
		"d": "2024-06-01",
		"i": 42,
		"s": "free text",
	}
	result := DenormalizeRecord(flat, m)

	exts := result["extension"].([]map[string]interface{})
	byURL := map[string]map[string]interface{}{}
	for _, e := range exts {
		byURL[e["url"].(string)] = e
	}
	if byURL["urn:x:date"]["valueDate"] != "2024-06-01" {
		t.Errorf("date extension mistyped: %v", byURL["urn:x:date"])
	}
	if byURL["urn:x:int"]["valueInteger"] != 42 {
		t.Errorf("integer extension mistyped: %v", byURL["urn:x:int"])
	}
	if byURL["urn:x:str"]["valueString"] != "free text" {
		t.Errorf("string extension mistyped: %v", byURL["urn:x:str"])
	}
}

// Flat records carry no wire-type tag, so expansion infers the value[x] key
// from the value. A valueString whose content is date-shaped comes back as
// valueDate; this pins the documented behavior so a change to the inference
// is a deliberate one.
func TestDenormalizeRecord_DateShapedStringBecomesValueDate(t *testing.T) {
	m := Mapping{Extensions: map[string]string{"urn:x:note": "note"}}
	raw := map[string]interface{}{
		"extension": []interface{}{
			map[string]interface{}{"url": "urn:x:note", "valueString": "2024-01-01"},
		},
	}

	flat := NormalizeRecord(raw, m)
	if flat["note"] != "2024-01-01" {
		t.Fatalf("note = %v, want the string value", flat["note"])
	}

	exts := DenormalizeRecord(flat, m)["extension"].([]map[string]interface{})
	if len(exts) != 1 {
		t.Fatalf("expected one extension, got %v", exts)
	}
	if exts[0]["valueDate"] != "2024-01-01" {
		t.Errorf("date-shaped string did not expand to valueDate: %v", exts[0])
	}
	if _, ok := exts[0]["valueString"]; ok {
		t.Errorf("valueString unexpectedly preserved: %v", exts[0])
	}
}
