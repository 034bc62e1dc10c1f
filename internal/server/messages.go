package server

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Client-to-server message types.
const (
	msgJoinRoom            = "joinRoom"
	msgUpdateRequiredCount = "updateRequiredCount"
	msgUpdatePlayerName    = "updatePlayerName"
	msgStartGame           = "startGame"
	msgCenterCard          = "centerCard"
)

// Server-to-client event types.
const (
	eventConnected            = "connected"
	eventPlayersUpdated       = "playersUpdated"
	eventRequiredCountUpdated = "requiredCountUpdated"
	eventGameStarted          = "gameStarted"
	eventCenterCard           = "centerCard"
	eventRoomFull             = "roomFull"
	eventError                = "error"
)

// envelope carries just the discriminator; the payload is re-decoded into
// the message struct matching the type.
type envelope struct {
	Type string `json:"type"`
}

type joinRoomMessage struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	Name   string `json:"name" validate:"omitempty,max=20"`
}

type updateRequiredCountMessage struct {
	RoomID        string `json:"roomId" validate:"required,max=64"`
	RequiredCount int    `json:"requiredCount" validate:"required,min=1,max=4"`
}

type updatePlayerNameMessage struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	Index  int    `json:"index" validate:"min=0"`
	Name   string `json:"name" validate:"required,max=20"`
}

type startGameMessage struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
}

type centerCardMessage struct {
	RoomID string   `json:"roomId" validate:"required,max=64"`
	Card   CardView `json:"card" validate:"required"`
}

type connectedEvent struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

type playersUpdatedEvent struct {
	Type        string         `json:"type"`
	Players     []string       `json:"players"`
	SelfIndexes map[string]int `json:"selfIndexes"`
}

type requiredCountUpdatedEvent struct {
	Type          string `json:"type"`
	RequiredCount int    `json:"requiredCount"`
}

type gameStartedEvent struct {
	Type      string `json:"type"`
	PlayOrder []int  `json:"playOrder"`
}

type centerCardEvent struct {
	Type      string   `json:"type"`
	Card      CardView `json:"card"`
	TurnIndex int      `json:"turnIndex"`
}

type roomFullEvent struct {
	Type string `json:"type"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

var messageValidator = validator.New(validator.WithRequiredStructEnabled())

// decodeMessage unmarshals a raw frame into the typed payload for the given
// message kind and validates it against the type's schema.
func decodeMessage(raw []byte, dest any) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	if err := messageValidator.Struct(dest); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
