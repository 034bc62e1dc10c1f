package server

import "sync"

// memoryRoomStore keeps room records, dealt-card sets, and events in process
// memory. It backs database-less runs and tests; the coordinator treats it
// exactly like the Postgres-backed store.
type memoryRoomStore struct {
	mu     sync.Mutex
	rooms  map[string]RoomRecord
	dealt  map[string]map[string]struct{}
	events []memoryEvent
}

type memoryEvent struct {
	RoomID  string
	Kind    string
	Payload EventPayload
}

func newMemoryRoomStore() *memoryRoomStore {
	return &memoryRoomStore{
		rooms: make(map[string]RoomRecord),
		dealt: make(map[string]map[string]struct{}),
	}
}

func (s *memoryRoomStore) CreateRoom(rec RoomRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[rec.ID]; ok {
		return errRoomExists
	}
	rec.Status = statusWaiting
	s.rooms[rec.ID] = rec
	return nil
}

func (s *memoryRoomStore) FetchRoom(id string) (RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rooms[id]
	if !ok {
		return RoomRecord{}, errRoomNotFound
	}
	return rec, nil
}

func (s *memoryRoomStore) SetRoomStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rooms[id]
	if !ok {
		return errRoomNotFound
	}
	rec.Status = status
	s.rooms[id] = rec
	return nil
}

func (s *memoryRoomStore) DeleteRoom(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return errRoomNotFound
	}
	delete(s.rooms, id)
	delete(s.dealt, id)
	return nil
}

func (s *memoryRoomStore) DealtCardIDs(roomID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.dealt[roomID]))
	for id := range s.dealt[roomID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memoryRoomStore) RecordDealt(roomID string, cardIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.dealt[roomID]
	if set == nil {
		set = make(map[string]struct{})
		s.dealt[roomID] = set
	}
	for _, id := range cardIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (s *memoryRoomStore) RecordEvent(roomID, kind string, payload EventPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, memoryEvent{RoomID: roomID, Kind: kind, Payload: payload})
}

// memoryCardSource is the in-memory counterpart of the Postgres catalog.
type memoryCardSource struct {
	mu     sync.Mutex
	cards  []CardView
	genres []GenreView
}

func newMemoryCardSource() *memoryCardSource {
	return &memoryCardSource{}
}

func (s *memoryCardSource) AddGenre(genre GenreView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genres = append(s.genres, genre)
}

func (s *memoryCardSource) AddCard(card CardView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, card)
}

func (s *memoryCardSource) CardsMatching(genreIDs []string, excludeIDs []string) ([]CardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[string]struct{}{}
	for _, id := range genreIDs {
		wanted[id] = struct{}{}
	}
	excluded := map[string]struct{}{}
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	matches := make([]CardView, 0, len(s.cards))
	for _, card := range s.cards {
		if genreIDs != nil {
			if _, ok := wanted[card.Genre.ID]; !ok {
				continue
			}
		}
		if _, ok := excluded[card.ID]; ok {
			continue
		}
		matches = append(matches, card)
	}
	return matches, nil
}

func (s *memoryCardSource) Genres() ([]GenreView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	genres := make([]GenreView, len(s.genres))
	copy(genres, s.genres)
	for i := range genres {
		count := 0
		for _, card := range s.cards {
			if card.Genre.ID == genres[i].ID {
				count++
			}
		}
		genres[i].CardCount = count
	}
	return genres, nil
}
