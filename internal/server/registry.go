package server

import "sync"

// binding ties a live connection to the seat it occupies.
type binding struct {
	roomID string
	slot   int
}

// registry is the per-room bidirectional connection-to-slot map. Its mutex
// only guards map access; slot-assignment consistency comes from the owning
// room's lock in the coordinator.
type registry struct {
	mu     sync.Mutex
	byConn map[string]binding
	byRoom map[string]map[int]string
}

func newRegistry() *registry {
	return &registry{
		byConn: make(map[string]binding),
		byRoom: make(map[string]map[int]string),
	}
}

func (r *registry) bind(roomID, connID string, slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byConn[connID]; ok {
		r.removeLocked(prev, connID)
	}
	r.byConn[connID] = binding{roomID: roomID, slot: slot}
	seats := r.byRoom[roomID]
	if seats == nil {
		seats = make(map[int]string)
		r.byRoom[roomID] = seats
	}
	seats[slot] = connID
}

func (r *registry) unbind(connID string) (binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byConn[connID]
	if !ok {
		return binding{}, false
	}
	delete(r.byConn, connID)
	r.removeLocked(b, connID)
	return b, true
}

func (r *registry) slotOf(connID string) (binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byConn[connID]
	return b, ok
}

// occupied reports whether any live connection holds the given seat.
func (r *registry) occupied(roomID string, slot int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byRoom[roomID][slot]
	return ok
}

// count returns the number of live connections bound in the room.
func (r *registry) count(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byRoom[roomID])
}

// bindings returns a conn-id to slot snapshot for one room, for broadcasts.
func (r *registry) bindings(roomID string) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	seats := r.byRoom[roomID]
	out := make(map[string]int, len(seats))
	for slot, connID := range seats {
		out[connID] = slot
	}
	return out
}

// shiftDown decrements every binding above a removed slot index so bindings
// stay aligned after the slot array is compacted.
func (r *registry) shiftDown(roomID string, removed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seats := r.byRoom[roomID]
	if len(seats) == 0 {
		return
	}
	shifted := make(map[int]string, len(seats))
	for slot, connID := range seats {
		if slot > removed {
			slot--
		}
		shifted[slot] = connID
		r.byConn[connID] = binding{roomID: roomID, slot: slot}
	}
	r.byRoom[roomID] = shifted
}

func (r *registry) removeLocked(b binding, connID string) {
	seats := r.byRoom[b.roomID]
	if seats == nil {
		return
	}
	if seats[b.slot] == connID {
		delete(seats, b.slot)
	}
	if len(seats) == 0 {
		delete(r.byRoom, b.roomID)
	}
}
