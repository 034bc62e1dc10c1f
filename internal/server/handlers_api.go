package server

import (
	"errors"
	"log"
	"net/http"
)

type drawCardsRequest struct {
	GenreIDs       []string `json:"genreIds"`
	CardCount      int      `json:"cardCount"`
	ExcludeCardIDs []string `json:"excludeCardIds"`
	RoomID         string   `json:"roomId"`
}

type createRoomRequest struct {
	RoomID         string   `json:"roomId"`
	Players        []string `json:"players"`
	RequiredCount  int      `json:"requiredCount"`
	SelectedGenres []string `json:"selectedGenres"`
	CardCount      int      `json:"cardCount"`
	OwnerName      string   `json:"ownerName"`
}

type createSessionRequest struct {
	CardCount      int      `json:"cardCount"`
	SelectedGenres []string `json:"selectedGenres"`
}

type updateSessionRequest struct {
	SessionID        string   `json:"sessionId"`
	UsedCardIDs      []string `json:"usedCardIds"`
	CurrentCardIndex *int     `json:"currentCardIndex"`
}

func (s *Server) handleDrawCards(w http.ResponseWriter, r *http.Request) {
	var req drawCardsRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.GenreIDs) == 0 {
		writeError(w, http.StatusBadRequest, "genre ids are required")
		return
	}
	if req.CardCount <= 0 {
		writeError(w, http.StatusBadRequest, "card count must be greater than 0")
		return
	}

	exclude := append([]string(nil), req.ExcludeCardIDs...)
	if req.RoomID != "" {
		dealt, err := s.store.DealtCardIDs(req.RoomID)
		if err != nil {
			log.Printf("dealt card lookup failed room_id=%s error=%v", req.RoomID, err)
		} else {
			exclude = append(exclude, dealt...)
		}
	}

	cards, err := s.catalog.Draw(req.GenreIDs, req.CardCount, exclude)
	if err != nil {
		var insufficient insufficientCardsError
		switch {
		case errors.Is(err, errNoCards):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &insufficient):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("card draw failed room_id=%s error=%v", req.RoomID, err)
			writeError(w, http.StatusInternalServerError, "failed to draw cards")
		}
		return
	}

	if req.RoomID != "" {
		ids := make([]string, 0, len(cards))
		for _, card := range cards {
			ids = append(ids, card.ID)
		}
		if err := s.store.RecordDealt(req.RoomID, ids); err != nil {
			log.Printf("dealt card write failed room_id=%s error=%v", req.RoomID, err)
		}
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.catalog.Genres()
	if err != nil {
		log.Printf("genre listing failed error=%v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch genres")
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RequiredCount == 0 {
		req.RequiredCount = s.cfg.DefaultRequiredCount
	}
	if req.RequiredCount < 1 || req.RequiredCount > s.cfg.MaxRequiredCount {
		writeError(w, http.StatusBadRequest, "required count out of range")
		return
	}
	if req.CardCount <= 0 {
		req.CardCount = s.cfg.DefaultCardCount
	}
	if req.RoomID == "" {
		req.RoomID = newRoomID()
	}
	if req.OwnerName != "" {
		name, err := validateName(req.OwnerName)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.OwnerName = name
	}
	players := req.Players
	if len(players) == 0 && req.OwnerName != "" {
		players = []string{req.OwnerName}
	}

	rec := RoomRecord{
		ID:             req.RoomID,
		Players:        players,
		RequiredCount:  req.RequiredCount,
		SelectedGenres: req.SelectedGenres,
		CardCount:      req.CardCount,
		OwnerName:      req.OwnerName,
		Status:         statusWaiting,
	}
	if err := s.store.CreateRoom(rec); err != nil {
		if errors.Is(err, errRoomExists) {
			writeError(w, http.StatusConflict, "room already exists")
			return
		}
		log.Printf("room create failed room_id=%s error=%v", req.RoomID, err)
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	log.Printf("room created room_id=%s required_count=%d", req.RoomID, req.RequiredCount)
	s.store.RecordEvent(req.RoomID, "room_created", EventPayload{PlayerName: req.OwnerName})
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"roomId": req.RoomID,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "missing room id")
		return
	}
	rec, err := s.store.FetchRoom(roomID)
	if err != nil {
		if errors.Is(err, errRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		log.Printf("room fetch failed room_id=%s error=%v", roomID, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch room")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec := SessionRecord{
		ID:             newSessionID(),
		CardCount:      req.CardCount,
		SelectedGenres: req.SelectedGenres,
		UsedCardIDs:    []string{},
	}
	if rec.CardCount <= 0 {
		rec.CardCount = 10
	}
	if rec.SelectedGenres == nil {
		rec.SelectedGenres = []string{}
	}
	if err := s.sessions.Create(rec); err != nil {
		log.Printf("session create failed error=%v", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": rec})
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	rec, err := s.sessions.Update(req.SessionID, req.UsedCardIDs, req.CurrentCardIndex)
	if err != nil {
		if errors.Is(err, errSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("session update failed session_id=%s error=%v", req.SessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to update session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": rec})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	rec, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, errSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("session fetch failed session_id=%s error=%v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": rec})
}
