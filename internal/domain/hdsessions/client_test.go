package hdsessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nephroinnovate/renal-console/internal/platform/gateway"
	"github.com/nephroinnovate/renal-console/internal/platform/session"
	"github.com/nephroinnovate/renal-console/pkg/pagination"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	mgr := session.NewManager(session.NewMemStore(), nil)
	if err := mgr.Set(context.Background(), session.Session{AccessToken: "T1"}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	gw, err := gateway.New(gateway.Config{
		BaseURL: srv.URL,
		Session: mgr,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return NewClient(gw)
}

func TestListResultsEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("patient"); got != "p-1" {
			t.Errorf("patient = %q", got)
		}
		w.Write([]byte(`{
			"results": [{
				"id": "hd-100",
				"patient_id": "p-1",
				"started_at": "2026-08-29T07:30:00Z",
				"duration_minutes": 240,
				"pre_weight_kg": 64.2,
				"post_weight_kg": 62.1,
				"ultrafiltration_l": 2.1,
				"access_used": "AV fistula"
			}],
			"count": 52
		}`))
	}))

	got, total, err := client.List(context.Background(), "p-1", pagination.Params{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 52 || len(got) != 1 {
		t.Fatalf("total=%d len=%d", total, len(got))
	}
	log := got[0]
	if log.ID != "hd-100" || log.DurationMinutes != 240 {
		t.Errorf("unexpected log: %+v", log)
	}
	if log.PreWeightKg != 64.2 || log.UltrafiltrationL != 2.1 {
		t.Errorf("weights wrong: %+v", log)
	}
}

func TestListBareArray(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "hd-1", "patient_id": "p-9"}, {"id": "hd-2", "patient_id": "p-9"}]`))
	}))

	got, total, err := client.List(context.Background(), "", pagination.Params{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("total=%d len=%d", total, len(got))
	}
	if got[1].ID != "hd-2" {
		t.Errorf("second log = %+v", got[1])
	}
}

func TestCreateSendsFlatJSON(t *testing.T) {
	var body map[string]interface{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "hd-200", "patient_id": "p-1", "duration_minutes": 210}`))
	}))

	created, err := client.Create(context.Background(), &SessionLog{
		PatientID:       "p-1",
		DurationMinutes: 210,
		BloodFlowRate:   300,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "hd-200" {
		t.Errorf("created id = %q", created.ID)
	}
	if body["patient_id"] != "p-1" || body["blood_flow_rate"] != float64(300) {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["id"]; ok {
		t.Errorf("empty id should be omitted, body = %v", body)
	}
}

func TestRemoteErrorSurfaces(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "post weight exceeds pre weight"}`))
	}))

	_, err := client.Create(context.Background(), &SessionLog{PatientID: "p-1"})
	var remote *gateway.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if remote.Status != http.StatusUnprocessableEntity || remote.Message != "post weight exceeds pre weight" {
		t.Errorf("remote = %+v", remote)
	}
}
