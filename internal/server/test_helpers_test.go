package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"table-talk/internal/config"
)

// eventRecorder captures coordinator emissions for assertions without a
// live socket.
type eventRecorder struct {
	mu         sync.Mutex
	broadcasts []any
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{}
}

func (r *eventRecorder) broadcast(roomID string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, payload)
}

func (r *eventRecorder) lastRoster(t *testing.T) playersUpdatedEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.broadcasts) - 1; i >= 0; i-- {
		if event, ok := r.broadcasts[i].(playersUpdatedEvent); ok {
			return event
		}
	}
	t.Fatal("no playersUpdated broadcast recorded")
	return playersUpdatedEvent{}
}

func (r *eventRecorder) lastQuota(t *testing.T) requiredCountUpdatedEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.broadcasts) - 1; i >= 0; i-- {
		if event, ok := r.broadcasts[i].(requiredCountUpdatedEvent); ok {
			return event
		}
	}
	t.Fatal("no requiredCountUpdated broadcast recorded")
	return requiredCountUpdatedEvent{}
}

func newTestCoordinator() (*Coordinator, *memoryRoomStore, *eventRecorder) {
	store := newMemoryRoomStore()
	recorder := newEventRecorder()
	return NewCoordinator(store, recorder, 2, 4), store, recorder
}

// failingRoomStore errors on everything, for degraded-store joins.
type failingRoomStore struct{}

func (failingRoomStore) CreateRoom(RoomRecord) error { return fmt.Errorf("store offline") }
func (failingRoomStore) FetchRoom(string) (RoomRecord, error) {
	return RoomRecord{}, fmt.Errorf("store offline")
}
func (failingRoomStore) SetRoomStatus(string, string) error { return fmt.Errorf("store offline") }
func (failingRoomStore) DeleteRoom(string) error            { return fmt.Errorf("store offline") }
func (failingRoomStore) DealtCardIDs(string) ([]string, error) {
	return nil, fmt.Errorf("store offline")
}
func (failingRoomStore) RecordDealt(string, []string) error    { return fmt.Errorf("store offline") }
func (failingRoomStore) RecordEvent(string, string, EventPayload) {}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil, config.Default())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func seedCatalog(srv *Server, perGenre map[string]int) {
	source := newMemoryCardSource()
	for genreID, count := range perGenre {
		source.AddGenre(GenreView{ID: genreID, Name: genreID, Color: "#3B82F6"})
		for i := 0; i < count; i++ {
			source.AddCard(CardView{
				ID:       fmt.Sprintf("%s-c%d", genreID, i+1),
				Question: fmt.Sprintf("question %d", i+1),
				Genre:    CardGenre{ID: genreID, Name: genreID, Color: "#3B82F6"},
			})
		}
	}
	srv.catalog = newCatalog(source)
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return body
}

func createRoom(t *testing.T, ts *httptest.Server, requiredCount int, ownerName string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/room", map[string]any{
		"requiredCount": requiredCount,
		"ownerName":     ownerName,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	roomID, _ := body["roomId"].(string)
	if roomID == "" {
		t.Fatal("expected roomId in create response")
	}
	return roomID
}
