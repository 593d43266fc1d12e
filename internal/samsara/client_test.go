package samsara

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

func TestFetchStatusRecordsPaginatesAndJoinsTags(t *testing.T) {
	var clockRequests, driverRequests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/fleet/hos/clocks":
			clockRequests = append(clockRequests, r.URL.Query().Get("after"))
			if r.URL.Query().Get("after") == "" {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]any{
						{
							"driver": map[string]any{"id": "d-1", "name": "Alice Carter"},
							"currentDutyStatus": map[string]any{
								"hosStatusType":      "personalConveyance",
								"hosStatusStartTime": "2026-03-10T06:00:00Z",
							},
						},
					},
					"pagination": map[string]any{"endCursor": "cursor-2", "hasNextPage": true},
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{
						"driver": map[string]any{"id": "d-2", "name": "Bob Reyes"},
						"currentDutyStatus": map[string]any{
							"hosStatusType":      "driving",
							"hosStatusStartTime": "not-a-timestamp",
						},
					},
				},
				"pagination": map[string]any{"hasNextPage": false},
			})
		case "/fleet/drivers":
			driverRequests = append(driverRequests, r.URL.Query().Get("tagIds"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"id": "d-1", "name": "Alice Carter", "tags": []map[string]any{{"id": "tag-A", "name": "Night Fleet"}}},
					{"id": "d-2", "name": "Bob Reyes"},
				},
				"pagination": map[string]any{"hasNextPage": false},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "token-1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	records, err := client.FetchStatusRecords(context.Background(), []string{"tag-A"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(clockRequests) != 2 {
		t.Fatalf("expected two paginated clock requests, got %v", clockRequests)
	}
	if len(driverRequests) != 1 || driverRequests[0] != "tag-A" {
		t.Fatalf("expected tag filter forwarded upstream, got %v", driverRequests)
	}
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}

	first := records[0]
	if first.DriverID != "d-1" || first.CurrentStatus != analysis.StatusPersonalConveyance {
		t.Fatalf("unexpected first record %+v", first)
	}
	if !first.StatusStartTime.Equal(time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start time %v", first.StatusStartTime)
	}
	if len(first.Tags) != 1 || first.Tags[0] != "tag-A" {
		t.Fatalf("expected driver tags joined, got %v", first.Tags)
	}

	second := records[1]
	if second.CurrentStatus != analysis.StatusDriving {
		t.Fatalf("unexpected second status %v", second.CurrentStatus)
	}
	if !second.StatusStartTime.IsZero() {
		t.Fatalf("malformed start time must map to zero, got %v", second.StatusStartTime)
	}
}

func TestFetchStatusRecordsUnknownStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/fleet/hos/clocks":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{
						"driver":            map[string]any{"id": "d-1"},
						"currentDutyStatus": map[string]any{"hosStatusType": "yardMove"},
					},
				},
				"pagination": map[string]any{"hasNextPage": false},
			})
		case "/fleet/drivers":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data":       []map[string]any{},
				"pagination": map[string]any{"hasNextPage": false},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "token-1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	records, err := client.FetchStatusRecords(context.Background(), nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 1 || records[0].CurrentStatus != analysis.StatusUnknown {
		t.Fatalf("expected unknown status mapping, got %+v", records)
	}
}

func TestClientRequiresToken(t *testing.T) {
	if _, err := NewClient("", ""); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestGetHOSClocksErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "bad-token")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.GetHOSClocks(context.Background(), nil); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}
