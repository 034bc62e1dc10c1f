package server

import (
	"encoding/json"
	"errors"
	"sync"

	"table-talk/internal/db"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errSessionNotFound = errors.New("session not found")

// sessionStore persists game sessions: which cards a session has burned
// through and where its reveal cursor sits. Falls back to process memory
// when no database is attached.
type sessionStore struct {
	db       *gorm.DB
	mu       sync.Mutex
	sessions map[string]SessionRecord
}

func newSessionStore(conn *gorm.DB) *sessionStore {
	return &sessionStore{
		db:       conn,
		sessions: make(map[string]SessionRecord),
	}
}

func (s *sessionStore) Create(rec SessionRecord) error {
	if rec.ID == "" {
		rec.ID = newSessionID()
	}
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sessions[rec.ID] = rec
		return nil
	}
	record := db.GameSession{
		ID:               rec.ID,
		CardCount:        rec.CardCount,
		SelectedGenres:   toJSON(rec.SelectedGenres),
		UsedCardIDs:      toJSON(rec.UsedCardIDs),
		CurrentCardIndex: rec.CurrentCardIndex,
	}
	return s.db.Create(&record).Error
}

func (s *sessionStore) Get(id string) (SessionRecord, error) {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		rec, ok := s.sessions[id]
		if !ok {
			return SessionRecord{}, errSessionNotFound
		}
		return rec, nil
	}
	var record db.GameSession
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SessionRecord{}, errSessionNotFound
		}
		return SessionRecord{}, err
	}
	rec := SessionRecord{
		ID:               record.ID,
		CardCount:        record.CardCount,
		CurrentCardIndex: record.CurrentCardIndex,
	}
	fromJSON(record.SelectedGenres, &rec.SelectedGenres)
	fromJSON(record.UsedCardIDs, &rec.UsedCardIDs)
	return rec, nil
}

// Update applies the provided used-card list and cursor; nil fields are
// left as stored.
func (s *sessionStore) Update(id string, usedCardIDs []string, currentCardIndex *int) (SessionRecord, error) {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		rec, ok := s.sessions[id]
		if !ok {
			return SessionRecord{}, errSessionNotFound
		}
		if usedCardIDs != nil {
			rec.UsedCardIDs = usedCardIDs
		}
		if currentCardIndex != nil {
			rec.CurrentCardIndex = *currentCardIndex
		}
		s.sessions[id] = rec
		return rec, nil
	}

	var record db.GameSession
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SessionRecord{}, errSessionNotFound
		}
		return SessionRecord{}, err
	}
	updates := map[string]any{}
	if usedCardIDs != nil {
		data, err := json.Marshal(usedCardIDs)
		if err != nil {
			return SessionRecord{}, err
		}
		updates["used_card_ids"] = datatypes.JSON(data)
	}
	if currentCardIndex != nil {
		updates["current_card_index"] = *currentCardIndex
	}
	if len(updates) > 0 {
		if err := s.db.Model(&record).Updates(updates).Error; err != nil {
			return SessionRecord{}, err
		}
	}
	return s.Get(id)
}
