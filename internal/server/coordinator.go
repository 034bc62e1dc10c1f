package server

import (
	"errors"
	"log"
	"math/rand/v2"
	"sync"
)

var (
	errRoomFull       = errors.New("room is full")
	errRoomNotFound   = errors.New("room not found")
	errNotOwner       = errors.New("only the room owner may do that")
	errNotYourSlot    = errors.New("slot does not belong to caller")
	errAlreadyStarted = errors.New("game already started")
	errBadCount       = errors.New("required count out of range")
)

// roomStore is the durable side of a room: configuration written at creation
// time, status flips, and teardown. Implemented over gorm and, when no
// database is attached, an in-memory table.
type roomStore interface {
	CreateRoom(rec RoomRecord) error
	FetchRoom(id string) (RoomRecord, error)
	SetRoomStatus(id, status string) error
	DeleteRoom(id string) error
	DealtCardIDs(roomID string) ([]string, error)
	RecordDealt(roomID string, cardIDs []string) error
	RecordEvent(roomID, kind string, payload EventPayload)
}

// broadcaster delivers events to room members. Implementations must not
// block; the coordinator calls this while holding a room's lock.
type broadcaster interface {
	broadcast(roomID string, payload any)
}

// Coordinator owns every live room's in-memory state and serializes all
// mutations per room. Operations on different rooms proceed in parallel;
// only the rooms map itself sits behind the coordinator-level mutex.
type Coordinator struct {
	mu           sync.Mutex
	rooms        map[string]*Room
	registry     *registry
	store        roomStore
	emit         broadcaster
	defaultQuota int
	maxQuota     int
}

func NewCoordinator(store roomStore, emit broadcaster, defaultQuota, maxQuota int) *Coordinator {
	if defaultQuota <= 0 {
		defaultQuota = 2
	}
	if maxQuota < defaultQuota {
		maxQuota = defaultQuota
	}
	return &Coordinator{
		rooms:        make(map[string]*Room),
		registry:     newRegistry(),
		store:        store,
		emit:         emit,
		defaultQuota: defaultQuota,
		maxQuota:     maxQuota,
	}
}

func (c *Coordinator) room(roomID string) *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.rooms[roomID]
	if !ok {
		room = &Room{id: roomID, quota: c.defaultQuota, status: statusWaiting}
		c.rooms[roomID] = room
	}
	return room
}

func (c *Coordinator) roomIfExists(roomID string) (*Room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.rooms[roomID]
	return room, ok
}

// dropRoom untracks the room only if it is still the given instance, so a
// stale pointer can never evict a replacement room.
func (c *Coordinator) dropRoom(roomID string, room *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rooms[roomID] == room {
		delete(c.rooms, roomID)
	}
}

func (c *Coordinator) tracks(roomID string, room *Room) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[roomID] == room
}

// lockRoomForJoin returns the tracked room with its lock held, plus the
// store record when a first join needs one. A teardown can race the lookup;
// when the locked room turns out to be untracked the lookup starts over, so
// a joiner is never seated in a room the coordinator already dropped.
func (c *Coordinator) lockRoomForJoin(roomID string) (*Room, RoomRecord, bool) {
	for {
		room := c.room(roomID)

		var rec RoomRecord
		haveRec := false
		if !room.snapshotInitialized() {
			fetched, err := c.store.FetchRoom(roomID)
			if err != nil {
				if !errors.Is(err, errRoomNotFound) {
					log.Printf("room store read failed room_id=%s error=%v", roomID, err)
				}
			} else {
				rec = fetched
				haveRec = true
			}
		}

		room.mu.Lock()
		if c.tracks(roomID, room) {
			return room, rec, haveRec
		}
		room.mu.Unlock()
	}
}

// Join seats a connection in a room, creating the in-memory room from the
// store record on first contact. The store read happens before the room lock
// is taken and is re-checked afterwards, so storage latency never serializes
// unrelated rooms.
func (c *Coordinator) Join(roomID, connID, name string) error {
	room, rec, haveRec := c.lockRoomForJoin(roomID)

	if !room.initialized {
		room.quota = c.defaultQuota
		room.turnIndex = 0
		room.status = statusWaiting
		if haveRec {
			if rec.RequiredCount > 0 {
				room.quota = rec.RequiredCount
			}
			if rec.Status != "" {
				room.status = rec.Status
			}
			for _, player := range rec.Players {
				if player != "" {
					room.slots = append(room.slots, player)
				}
			}
		}
		room.initialized = true
	}

	if b, ok := c.registry.slotOf(connID); ok && b.roomID == roomID {
		// Idempotent rejoin: the seat is already held, just re-sync.
		c.broadcastRoster(room)
		c.broadcastQuota(room)
		room.mu.Unlock()
		return nil
	}

	live := c.registry.count(roomID)
	slot := -1
	if live == 0 {
		slot = 0
		if len(room.slots) == 0 {
			room.slots = append(room.slots, "")
		}
	} else {
		if len(room.slots) >= room.quota && !c.openSlot(room) {
			room.mu.Unlock()
			return errRoomFull
		}
		want := live + 1
		if want > room.quota {
			want = room.quota
		}
		for len(room.slots) < want {
			room.slots = append(room.slots, "")
		}
		for i := range room.slots {
			if room.slots[i] == "" && !c.registry.occupied(roomID, i) {
				slot = i
				break
			}
		}
		if slot < 0 {
			room.mu.Unlock()
			return errRoomFull
		}
	}

	c.registry.bind(roomID, connID, slot)
	if name != "" && room.slots[slot] == "" {
		room.slots[slot] = name
	}
	c.broadcastRoster(room)
	c.broadcastQuota(room)
	room.mu.Unlock()

	log.Printf("player joined room_id=%s conn_id=%s slot=%d", roomID, connID, slot)
	c.store.RecordEvent(roomID, "player_joined", EventPayload{
		ConnID:     connID,
		SlotIndex:  &slot,
		PlayerName: name,
	})
	return nil
}

// UpdateQuota resizes the room. Owner-only, waiting-phase only. Truncation
// is unconditional on length; trailing seats go away even if named.
func (c *Coordinator) UpdateQuota(roomID, connID string, quota int) error {
	room, ok := c.roomIfExists(roomID)
	if !ok {
		return errRoomNotFound
	}
	if quota < 1 || quota > c.maxQuota {
		return errBadCount
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if b, ok := c.registry.slotOf(connID); !ok || b.roomID != roomID || b.slot != 0 {
		return errNotOwner
	}
	if room.status != statusWaiting {
		return errAlreadyStarted
	}
	room.quota = quota
	for len(room.slots) < quota {
		room.slots = append(room.slots, "")
	}
	if len(room.slots) > quota {
		room.slots = room.slots[:quota]
	}
	c.broadcastQuota(room)
	c.broadcastRoster(room)
	return nil
}

// UpdateName renames a seat; only the connection bound to that seat may.
func (c *Coordinator) UpdateName(roomID, connID string, index int, name string) error {
	room, ok := c.roomIfExists(roomID)
	if !ok {
		return errRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	b, ok := c.registry.slotOf(connID)
	if !ok || b.roomID != roomID || b.slot != index {
		return errNotYourSlot
	}
	if index < 0 || index >= len(room.slots) {
		return errNotYourSlot
	}
	room.slots[index] = name
	c.broadcastRoster(room)
	return nil
}

// StartGame flips the room to playing and fixes the turn sequence as a
// uniform random permutation of the seat indices.
func (c *Coordinator) StartGame(roomID, connID string) error {
	room, ok := c.roomIfExists(roomID)
	if !ok {
		return errRoomNotFound
	}

	room.mu.Lock()
	if b, ok := c.registry.slotOf(connID); !ok || b.roomID != roomID || b.slot != 0 {
		room.mu.Unlock()
		return errNotOwner
	}
	if room.status != statusWaiting {
		room.mu.Unlock()
		return errAlreadyStarted
	}
	room.status = statusPlaying
	room.turnIndex = 0
	room.playOrder = make([]int, len(room.slots))
	for i := range room.playOrder {
		room.playOrder[i] = i
	}
	rand.Shuffle(len(room.playOrder), func(i, j int) {
		room.playOrder[i], room.playOrder[j] = room.playOrder[j], room.playOrder[i]
	})
	order := append([]int(nil), room.playOrder...)
	c.emit.broadcast(roomID, gameStartedEvent{Type: eventGameStarted, PlayOrder: order})
	room.mu.Unlock()

	log.Printf("game started room_id=%s players=%d", roomID, len(order))
	if err := c.store.SetRoomStatus(roomID, statusPlaying); err != nil {
		log.Printf("room status update failed room_id=%s error=%v", roomID, err)
	}
	c.store.RecordEvent(roomID, "game_started", EventPayload{ConnID: connID, PlayOrder: order})
	return nil
}

// PlayCard advances the turn counter by exactly one and echoes the played
// card to the room. The caller's seat is not matched against the turn order;
// the turn counter is still authoritative here, not on any client.
func (c *Coordinator) PlayCard(roomID, connID string, card CardView) error {
	room, ok := c.roomIfExists(roomID)
	if !ok {
		return errRoomNotFound
	}
	if b, ok := c.registry.slotOf(connID); !ok || b.roomID != roomID {
		return errRoomNotFound
	}

	room.mu.Lock()
	room.turnIndex++
	turn := room.turnIndex
	c.emit.broadcast(roomID, centerCardEvent{Type: eventCenterCard, Card: card, TurnIndex: turn})
	room.mu.Unlock()

	c.store.RecordEvent(roomID, "card_played", EventPayload{ConnID: connID, CardID: card.ID, TurnIndex: &turn})
	return nil
}

// Leave frees the connection's seat, compacts the slot array, shifts the
// bindings above the gap down, and tears the room down when nobody is left.
func (c *Coordinator) Leave(connID string) {
	pre, ok := c.registry.slotOf(connID)
	if !ok {
		return
	}
	room, ok := c.roomIfExists(pre.roomID)
	if !ok {
		c.registry.unbind(connID)
		return
	}

	room.mu.Lock()
	// The pre-lock snapshot is only good for finding the room; a concurrent
	// leave may have compacted slots since, so the seat index must come from
	// the registry under the lock.
	b, ok := c.registry.unbind(connID)
	if !ok {
		room.mu.Unlock()
		return
	}
	if b.slot >= 0 && b.slot < len(room.slots) {
		room.slots = append(room.slots[:b.slot], room.slots[b.slot+1:]...)
	}
	c.registry.shiftDown(b.roomID, b.slot)
	remaining := c.registry.count(b.roomID)
	if remaining > 0 {
		c.broadcastRoster(room)
	} else {
		// Untrack while still holding the lock so a racing join re-fetches
		// instead of seating into this instance.
		c.dropRoom(b.roomID, room)
	}
	room.mu.Unlock()

	log.Printf("player left room_id=%s conn_id=%s slot=%d remaining=%d", b.roomID, connID, b.slot, remaining)
	c.store.RecordEvent(b.roomID, "player_left", EventPayload{ConnID: connID, SlotIndex: &b.slot})
	if remaining == 0 {
		if err := c.store.DeleteRoom(b.roomID); err != nil && !errors.Is(err, errRoomNotFound) {
			log.Printf("room delete failed room_id=%s error=%v", b.roomID, err)
		}
		c.store.RecordEvent(b.roomID, "room_deleted", EventPayload{})
		log.Printf("room deleted room_id=%s reason=empty", b.roomID)
	}
}

// Roster returns a copy of the current slot list, for HTTP reads and tests.
func (c *Coordinator) Roster(roomID string) ([]string, bool) {
	room, ok := c.roomIfExists(roomID)
	if !ok {
		return nil, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return append([]string(nil), room.slots...), true
}

func (c *Coordinator) openSlot(room *Room) bool {
	for i := range room.slots {
		if room.slots[i] == "" && !c.registry.occupied(room.id, i) {
			return true
		}
	}
	return false
}

func (c *Coordinator) broadcastRoster(room *Room) {
	players := append([]string(nil), room.slots...)
	c.emit.broadcast(room.id, playersUpdatedEvent{
		Type:        eventPlayersUpdated,
		Players:     players,
		SelfIndexes: c.registry.bindings(room.id),
	})
}

func (c *Coordinator) broadcastQuota(room *Room) {
	c.emit.broadcast(room.id, requiredCountUpdatedEvent{
		Type:          eventRequiredCountUpdated,
		RequiredCount: room.quota,
	})
}

func (r *Room) snapshotInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}
