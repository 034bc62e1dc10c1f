package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func decodeCards(t *testing.T, resp *http.Response) []CardView {
	t.Helper()
	var cards []CardView
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		t.Fatalf("decode cards: %v", err)
	}
	return cards
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestCreateAndFetchRoom(t *testing.T) {
	_, ts := newTestServer(t)

	roomID := createRoom(t, ts, 3, "Ada")

	resp := doRequest(t, ts, http.MethodGet, "/api/room/"+roomID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	var rec RoomRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if rec.ID != roomID {
		t.Fatalf("expected room id %s, got %s", roomID, rec.ID)
	}
	if rec.RequiredCount != 3 {
		t.Fatalf("expected required count 3, got %d", rec.RequiredCount)
	}
	if len(rec.Players) != 1 || rec.Players[0] != "Ada" {
		t.Fatalf("expected owner seeded as first player, got %v", rec.Players)
	}
	if rec.Status != statusWaiting {
		t.Fatalf("expected status waiting, got %s", rec.Status)
	}
}

func TestCreateRoomDefaultsAndValidation(t *testing.T) {
	_, ts := newTestServer(t)

	// Zero required count falls back to the configured default.
	resp := doRequest(t, ts, http.MethodPost, "/api/room", map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	roomID, _ := body["roomId"].(string)

	resp = doRequest(t, ts, http.MethodGet, "/api/room/"+roomID, nil)
	var rec RoomRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if rec.RequiredCount != 2 {
		t.Fatalf("expected default required count 2, got %d", rec.RequiredCount)
	}
	if rec.CardCount != 4 {
		t.Fatalf("expected default card count 4, got %d", rec.CardCount)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/room", map[string]any{"requiredCount": 9})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400 for out-of-range count, got %d", resp.StatusCode)
	}
}

func TestCreateRoomDuplicateConflicts(t *testing.T) {
	_, ts := newTestServer(t)

	payload := map[string]any{"roomId": "fixed-room", "requiredCount": 2}
	resp := doRequest(t, ts, http.MethodPost, "/api/room", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/room", payload)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate room, got %d", resp.StatusCode)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/api/room/no-such-room", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.StatusCode)
	}
}

func TestGenresEndpoint(t *testing.T) {
	srv, ts := newTestServer(t)
	seedCatalog(srv, map[string]int{"love": 2, "work": 3})

	resp := doRequest(t, ts, http.MethodGet, "/api/genres", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	var genres []GenreView
	if err := json.NewDecoder(resp.Body).Decode(&genres); err != nil {
		t.Fatalf("decode genres: %v", err)
	}
	if len(genres) != 2 {
		t.Fatalf("expected 2 genres, got %d", len(genres))
	}
	counts := make(map[string]int)
	for _, genre := range genres {
		counts[genre.ID] = genre.CardCount
	}
	if counts["love"] != 2 || counts["work"] != 3 {
		t.Fatalf("unexpected genre counts %v", counts)
	}
}

func TestDrawEndpoint(t *testing.T) {
	srv, ts := newTestServer(t)
	seedCatalog(srv, map[string]int{"love": 5})

	resp := doRequest(t, ts, http.MethodPost, "/api/cards/draw", map[string]any{
		"genreIds":  []string{"love"},
		"cardCount": 3,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	cards := decodeCards(t, resp)
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}
	for _, card := range cards {
		if card.Genre.ID != "love" {
			t.Fatalf("card %s leaked from genre %s", card.ID, card.Genre.ID)
		}
	}
}

func TestDrawEndpointValidation(t *testing.T) {
	srv, ts := newTestServer(t)
	seedCatalog(srv, map[string]int{"love": 4})

	resp := doRequest(t, ts, http.MethodPost, "/api/cards/draw", map[string]any{
		"cardCount": 3,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400 for missing genres, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/cards/draw", map[string]any{
		"genreIds": []string{"love"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400 for zero count, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/cards/draw", map[string]any{
		"genreIds":  []string{"love"},
		"cardCount": 10,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400 for oversize draw, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if msg, _ := body["error"].(string); msg != "only 4 cards available, but 10 requested" {
		t.Fatalf("unexpected error message %q", msg)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/cards/draw", map[string]any{
		"genreIds":  []string{"mystery"},
		"cardCount": 1,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404 for empty pool, got %d", resp.StatusCode)
	}
}

func TestDrawTracksDealtCardsPerRoom(t *testing.T) {
	srv, ts := newTestServer(t)
	seedCatalog(srv, map[string]int{"love": 5})
	roomID := createRoom(t, ts, 2, "Ada")

	draw := func(count int) *http.Response {
		return doRequest(t, ts, http.MethodPost, "/api/cards/draw", map[string]any{
			"genreIds":  []string{"random"},
			"cardCount": count,
			"roomId":    roomID,
		})
	}

	resp := draw(3)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first draw: expected status 200, got %d", resp.StatusCode)
	}
	first := decodeCards(t, resp)

	resp = draw(2)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second draw: expected status 200, got %d", resp.StatusCode)
	}
	second := decodeCards(t, resp)

	seen := make(map[string]bool)
	for _, card := range append(first, second...) {
		if seen[card.ID] {
			t.Fatalf("card %s dealt twice to the room", card.ID)
		}
		seen[card.ID] = true
	}

	resp = draw(1)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404 once the pool is exhausted, got %d", resp.StatusCode)
	}
}

func TestSessionLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions", map[string]any{
		"cardCount":      5,
		"selectedGenres": []string{"love"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	var created struct {
		Session SessionRecord `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if created.Session.ID == "" {
		t.Fatal("expected session id")
	}
	if created.Session.CardCount != 5 {
		t.Fatalf("expected card count 5, got %d", created.Session.CardCount)
	}

	index := 2
	resp = doRequest(t, ts, http.MethodPatch, "/api/sessions", map[string]any{
		"sessionId":        created.Session.ID,
		"usedCardIds":      []string{"c1", "c2"},
		"currentCardIndex": index,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected status 200, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, fmt.Sprintf("/api/sessions?sessionId=%s", created.Session.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch: expected status 200, got %d", resp.StatusCode)
	}
	var fetched struct {
		Session SessionRecord `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if fetched.Session.CurrentCardIndex != index {
		t.Fatalf("expected current card index %d, got %d", index, fetched.Session.CurrentCardIndex)
	}
	if len(fetched.Session.UsedCardIDs) != 2 {
		t.Fatalf("expected 2 used cards, got %v", fetched.Session.UsedCardIDs)
	}
}

func TestSessionErrors(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/api/sessions", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400 without session id, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/sessions?sessionId=missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown session, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPatch, "/api/sessions", map[string]any{
		"sessionId": "missing",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404 updating unknown session, got %d", resp.StatusCode)
	}
}
