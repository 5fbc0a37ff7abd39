package pagerduty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/target/gradesync/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when routing key missing")
	}
}

func TestBuildEventDefaults(t *testing.T) {
	client, err := NewClient(Config{RoutingKey: "key", Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := client.buildEvent(notify.RunFailurePayload{
		CourseID:   "42",
		Outcome:    "failed",
		Error:      "boom",
		ErrorClass: "timeout",
		Metadata:   map[string]string{"course_id": "ignored", "job_id": "7"},
	})

	section, ok := event["payload"].(map[string]any)
	if !ok {
		t.Fatalf("expected payload section")
	}
	if section["severity"] != notify.SeverityCritical {
		t.Fatalf("expected default severity, got %v", section["severity"])
	}
	if section["source"] != "gradesync" || section["component"] != "gradesync" {
		t.Fatalf("unexpected source/component: %v/%v", section["source"], section["component"])
	}
	if section["summary"] != "Grade sync for course 42 failed" {
		t.Fatalf("unexpected summary %v", section["summary"])
	}
	custom, ok := section["custom_details"].(map[string]any)
	if !ok {
		t.Fatalf("expected custom details")
	}
	if custom["course_id"] != "42" || custom["job_id"] != "7" {
		t.Fatalf("metadata must not override canonical keys: %v", custom)
	}
	if event["dedup_key"] != "gradesync:42:failed" {
		t.Fatalf("unexpected dedup key %v", event["dedup_key"])
	}
}

func TestSendRunFailureUsesEndpoint(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "rk", Endpoint: srv.URL, Client: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = client.SendRunFailure(context.Background(), notify.RunFailurePayload{
		CourseID: "9", Outcome: "unconfirmed", Severity: "WARNING",
	})
	if err != nil {
		t.Fatalf("SendRunFailure error: %v", err)
	}
	if got["routing_key"] != "rk" {
		t.Fatalf("unexpected routing key %v", got["routing_key"])
	}
	if section, _ := got["payload"].(map[string]any); section["severity"] != "warning" {
		t.Fatalf("severity not normalised: %v", section)
	}
}
