package server

// EventPayload is the audit-trail row body persisted alongside room
// lifecycle changes.
type EventPayload struct {
	ConnID     string `json:"conn_id,omitempty"`
	PlayerName string `json:"player,omitempty"`
	SlotIndex  *int   `json:"slot_index,omitempty"`
	TurnIndex  *int   `json:"turn_index,omitempty"`
	CardID     string `json:"card_id,omitempty"`
	PlayOrder  []int  `json:"play_order,omitempty"`
}
