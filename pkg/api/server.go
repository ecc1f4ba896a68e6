package api

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/shadowbook/engine/pkg/money"
)

// Server is the read-only query API plus the one write door (submitting a
// pre-signed envelope) that every other off-path collaborator — UI, load
// generator, bridge — goes through.
type Server struct {
	engine Engine
	router *mux.Router
	hub    *Hub
	logger *zap.Logger
}

// NewServer builds the router and WebSocket hub around engine. A nil
// logger disables API-layer logging.
func NewServer(engine Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{engine: engine, router: mux.NewRouter(), hub: newHub(logger), logger: logger}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/instruments", s.handleInstruments).Methods("GET")
	v1.HandleFunc("/instruments/{id}/orderbook", s.handleOrderbook).Methods("GET")
	v1.HandleFunc("/instruments/{id}/trades", s.handleTrades).Methods("GET")
	v1.HandleFunc("/users/{id}/balances", s.handleBalances).Methods("GET")
	v1.HandleFunc("/users/{id}/orders", s.handleOrders).Methods("GET")
	v1.HandleFunc("/status", s.handleStatus).Methods("GET")
	v1.HandleFunc("/actions", s.handleSubmit).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]string{"status": "ok"})
	}).Methods("GET")
}

func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	s.logger.Info("api server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func parseInstrumentID(r *http.Request) (money.InstrumentID, error) {
	n, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		return 0, err
	}
	return money.InstrumentID(n), nil
}

func parseUserID(r *http.Request) (money.UserID, error) {
	n, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, err
	}
	return money.UserID(n), nil
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.engine.Instruments())
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	id, err := parseInstrumentID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid instrument id")
		return
	}
	snap, ok := s.engine.Orderbook(id)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	respondJSON(w, snap)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	id, err := parseInstrumentID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid instrument id")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	respondJSON(w, s.engine.RecentTrades(id, limit))
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	respondJSON(w, s.engine.Balances(id))
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	respondJSON(w, s.engine.Orders(id))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.engine.Status())
}

// handleSubmit accepts a wire-encoded envelope (action.EncodeEnvelope),
// hex or raw depending on Content-Type, and hands it to the fast path.
// The request/response shape is deliberately minimal: the envelope bytes
// are the contract, not this route.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	envBytes := body
	if r.Header.Get("Content-Type") == "application/json" {
		var req struct {
			Envelope string `json:"envelope"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid json")
			return
		}
		envBytes, err = hex.DecodeString(req.Envelope)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid hex envelope")
			return
		}
	}
	respondJSON(w, s.engine.Submit(envBytes))
}

// BroadcastOrderbook pushes the current book to every subscriber of
// "orderbook:<instrument>" — called by the fast path after each action
// that touched that instrument's book.
func (s *Server) BroadcastOrderbook(inst money.InstrumentID) {
	snap, ok := s.engine.Orderbook(inst)
	if !ok {
		return
	}
	s.hub.BroadcastToChannel(channelOrderbook(inst), WSMessage{Type: "orderbook", Data: snap})
}

// BroadcastTrade pushes one fill to "trades:<instrument>" subscribers.
func (s *Server) BroadcastTrade(t TradeInfo) {
	s.hub.BroadcastToChannel(channelTrades(money.InstrumentID(t.Instrument)), WSMessage{Type: "trade", Data: t})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
