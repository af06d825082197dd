package recalc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/edit"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
)

func testRequest() Request {
	return Request{
		Month:        "2026-02",
		HomeBase:     "DOH",
		HomeTimezone: "Asia/Qatar",
		Edits:        []edit.Record{{BlockID: "b1", OriginalStartHour: 1, OriginalEndHour: 6, NewStartHour: 1, NewEndHour: 7}},
	}
}

func TestRecalculateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/recalculate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if len(req.Edits) != 1 || req.Edits[0].BlockID != "b1" {
			t.Errorf("edits not sent: %+v", req.Edits)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(roster.Dataset{Month: "2026-02", Duties: []roster.Duty{{ID: "D1"}}}); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL+"/", nil)
	ds, err := c.Recalculate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if ds.Month != "2026-02" || len(ds.Duties) != 1 || ds.Duties[0].ID != "D1" {
		t.Errorf("dataset = %+v", ds)
	}
}

func TestRecalculateRetries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
		wantOK    bool
	}{
		{"server error then success", http.StatusBadGateway, 3, true},
		{"rate limited then success", http.StatusTooManyRequests, 3, true},
		{"bad request is final", http.StatusBadRequest, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if calls.Add(1) < 3 {
					http.Error(w, "nope", tt.status)
					return
				}
				_, _ = w.Write([]byte(`{"duties":[]}`)) //nolint:errcheck // test server
			}))
			defer server.Close()

			c := NewHTTPClient(server.URL, nil, WithRetry(5, time.Millisecond))
			_, err := c.Recalculate(context.Background(), testRequest())
			if (err == nil) != tt.wantOK {
				t.Fatalf("err = %v, want ok=%v", err, tt.wantOK)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
			if !tt.wantOK {
				var se *StatusError
				if !errors.As(err, &se) || se.Code != tt.status {
					t.Errorf("expected StatusError %d, got %v", tt.status, err)
				}
			}
		})
	}
}

func TestRecalculateGivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, nil, WithRetry(3, time.Millisecond))
	if _, err := c.Recalculate(context.Background(), testRequest()); err == nil {
		t.Fatal("expected an error")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRecalculateBadBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json")) //nolint:errcheck // test server
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, nil, WithRetry(2, time.Millisecond))
	if _, err := c.Recalculate(context.Background(), testRequest()); err == nil {
		t.Error("expected a decode error")
	}
}

func TestRecalculateCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c := NewHTTPClient(server.URL, nil, WithRetry(5, time.Millisecond))
	start := time.Now()
	if _, err := c.Recalculate(ctx, testRequest()); err == nil {
		t.Fatal("expected an error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation did not stop the retries")
	}
}
