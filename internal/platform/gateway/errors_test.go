package gateway

import "testing"

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"patient not found"}`, "patient not found"},
		{"error field", `{"error":"invalid token"}`, "invalid token"},
		{"detail field", `{"detail":"session log locked"}`, "session log locked"},
		{"message wins over error", `{"message":"first","error":"second"}`, "first"},
		{"errors array", `{"errors":["too short","too long"]}`, "too short; too long"},
		{"errors object", `{"errors":{"mrn":"required","email":"invalid"}}`, "email: invalid; mrn: required"},
		{"non_field_errors", `{"non_field_errors":["unable to log in"]}`, "unable to log in"},
		{"bare json string", `"plain failure"`, "plain failure"},
		{"per-field scan", `{"dry_weight":"must be positive"}`, "dry_weight: must be positive"},
		{"per-field array scan", `{"phone":["too short"]}`, "phone: too short"},
		{"non-json body", `upstream exploded`, "upstream exploded"},
		{"unextractable object", `{"code":42}`, `{"code":42}`},
		{"empty body", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("ExtractMessage(%s) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestRemoteError_Error(t *testing.T) {
	e := &RemoteError{Status: 422, Message: "mrn required"}
	if got := e.Error(); got != "remote error: status 422: mrn required" {
		t.Errorf("unexpected error string: %q", got)
	}

	bare := &RemoteError{Status: 500}
	if got := bare.Error(); got != "remote error: status 500" {
		t.Errorf("unexpected error string: %q", got)
	}
}
