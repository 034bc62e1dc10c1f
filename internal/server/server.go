package server

import (
	"net/http"

	"table-talk/internal/config"

	"gorm.io/gorm"
)

type Server struct {
	db          *gorm.DB
	cfg         config.Config
	hub         *wsHub
	store       roomStore
	coordinator *Coordinator
	catalog     *catalog
	sessions    *sessionStore
}

// New wires the server. A nil connection is allowed: room records, sessions,
// and the catalog then live in process memory only.
func New(conn *gorm.DB, cfg config.Config) *Server {
	hub := newWSHub()
	var store roomStore
	var source cardSource
	if conn != nil {
		store = newGormRoomStore(conn)
		source = newGormCardSource(conn)
	} else {
		store = newMemoryRoomStore()
		source = newMemoryCardSource()
	}
	return &Server{
		db:          conn,
		cfg:         cfg,
		hub:         hub,
		store:       store,
		coordinator: NewCoordinator(store, hub, cfg.DefaultRequiredCount, cfg.MaxRequiredCount),
		catalog:     newCatalog(source),
		sessions:    newSessionStore(conn),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("POST /api/cards/draw", s.handleDrawCards)
	mux.HandleFunc("GET /api/genres", s.handleGenres)
	mux.HandleFunc("POST /api/room", s.handleCreateRoom)
	mux.HandleFunc("GET /api/room/{roomId}", s.handleGetRoom)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("PATCH /api/sessions", s.handleUpdateSession)
	mux.HandleFunc("GET /api/sessions", s.handleGetSession)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
