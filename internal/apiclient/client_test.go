package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guybartal/momentloop-sub000/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(Options{BaseURL: srv.URL, Token: "test-token"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("New() error = %v, want ErrMissingBaseURL", err)
	}
}

func TestListJobs(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/jobs" {
			t.Errorf("request = %s %s, want GET /api/jobs", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit = %q, want 50", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]JobRecord{
			{ID: "srv-1", JobType: "export", Status: "completed", CreatedAt: now, CompletedAt: &now},
			{ID: "srv-2", JobType: "style_transfer", Status: "running", CreatedAt: now, StartedAt: &now},
		})
	})

	records, err := client.ListJobs(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListJobs() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListJobs() returned %d records, want 2", len(records))
	}
	if records[0].ID != "srv-1" || records[0].CompletedAt == nil {
		t.Errorf("first record = %+v, want srv-1 with completed_at", records[0])
	}
	if !records[1].CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", records[1].CreatedAt, now)
	}
}

func TestCreateJob(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Errorf("request = %s %s, want POST /api/jobs", r.Method, r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["project_id"] != "proj-1" || payload["job_type"] != "video_generation" {
			t.Errorf("payload = %v", payload)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(JobRecord{
			ID:          "srv-1",
			ProjectID:   payload["project_id"],
			JobType:     payload["job_type"],
			Description: payload["description"],
			Status:      "running",
			CreatedAt:   time.Now().UTC(),
		})
	})

	record, err := client.CreateJob(context.Background(), "proj-1", domain.JobTypeVideoGeneration, "Generate clip")
	if err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}
	if record.ID != "srv-1" {
		t.Errorf("record id = %q, want srv-1", record.ID)
	}
}

func TestFailJobEncodesError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		if r.URL.Path != "/api/jobs/srv-1/fail" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("error"); got != "provider timed out" {
			t.Errorf("error param = %q", got)
		}
		_ = json.NewEncoder(w).Encode(JobRecord{ID: "srv-1", Status: "failed"})
	})

	if err := client.FailJob(context.Background(), "srv-1", "provider timed out"); err != nil {
		t.Fatalf("FailJob() error: %v", err)
	}
}

func TestDeleteRoutes(t *testing.T) {
	var gotPaths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		gotPaths = append(gotPaths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteJob(context.Background(), "srv-1"); err != nil {
		t.Fatalf("DeleteJob() error: %v", err)
	}
	if err := client.ClearNotifications(context.Background()); err != nil {
		t.Fatalf("ClearNotifications() error: %v", err)
	}
	want := []string{"/api/jobs/srv-1", "/api/jobs/notifications"}
	if len(gotPaths) != 2 || gotPaths[0] != want[0] || gotPaths[1] != want[1] {
		t.Errorf("paths = %v, want %v", gotPaths, want)
	}
}

func TestNotFoundMapsToDomainError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found", "message": "job not found"})
	})

	err := client.CompleteJob(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("CompleteJob() error = %v, want wrapped domain.ErrNotFound", err)
	}
}
