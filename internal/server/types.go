package server

import "sync"

const (
	statusWaiting = "waiting"
	statusPlaying = "playing"
)

const (
	genreRandom = "random"
	genreAll    = "all"
)

// Room is the in-memory coordination state for one live room. Slots hold
// display names; "" marks an unclaimed seat. All fields behind mu.
type Room struct {
	mu          sync.Mutex
	id          string
	quota       int
	slots       []string
	status      string
	turnIndex   int
	playOrder   []int
	initialized bool
}

// GenreView is the wire shape of a catalog genre, card count included.
type GenreView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
	CardCount   int    `json:"cardCount"`
}

// CardView is the wire shape of a drawn card with its genre resolved.
type CardView struct {
	ID          string    `json:"id" validate:"required"`
	Question    string    `json:"question"`
	Description string    `json:"description,omitempty"`
	Genre       CardGenre `json:"genre"`
}

type CardGenre struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RoomRecord is the durable room configuration held by the room store.
type RoomRecord struct {
	ID             string   `json:"roomId"`
	Players        []string `json:"players"`
	RequiredCount  int      `json:"requiredCount"`
	SelectedGenres []string `json:"selectedGenres"`
	CardCount      int      `json:"cardCount"`
	OwnerName      string   `json:"ownerName,omitempty"`
	Status         string   `json:"status"`
}

// SessionRecord mirrors a persisted game session.
type SessionRecord struct {
	ID               string   `json:"id"`
	CardCount        int      `json:"cardCount"`
	SelectedGenres   []string `json:"selectedGenres"`
	UsedCardIDs      []string `json:"usedCardIds"`
	CurrentCardIndex int      `json:"currentCardIndex"`
}
