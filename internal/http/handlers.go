package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/rapidryde/internal/dispatch"
	"github.com/example/rapidryde/internal/matcher"
	"github.com/example/rapidryde/internal/models"
	"github.com/example/rapidryde/internal/rating"
	"github.com/example/rapidryde/internal/ridestore"
)

type Server struct {
	Store   *ridestore.Store
	Matcher *matcher.Service
	WSReg   *dispatch.WSRegistry
	logger  *slog.Logger
	mux     *mux.Router
}

func NewServer(store *ridestore.Store, wsreg *dispatch.WSRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if wsreg == nil {
		wsreg = dispatch.NewWSRegistry()
	}
	s := &Server{
		Store:   store,
		Matcher: &matcher.Service{Rides: store},
		WSReg:   wsreg,
		logger:  logger,
		mux:     mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/rides", s.handleBook).Methods("POST")
	api.HandleFunc("/rides/schedule", s.handleSchedule).Methods("POST")
	api.HandleFunc("/rides", s.handleListRides).Methods("GET")
	api.HandleFunc("/rides/pending", s.handlePendingRides).Methods("GET")
	api.HandleFunc("/rides/{id}", s.handleGetRide).Methods("GET")
	api.HandleFunc("/rides/{id}/accept", s.handleAccept).Methods("POST")
	api.HandleFunc("/rides/{id}/complete", s.handleComplete).Methods("POST")
	api.HandleFunc("/rides/{id}/cancel", s.handleCancel).Methods("POST")
	api.HandleFunc("/rides/{id}/rating", s.handleRating).Methods("POST")
	api.HandleFunc("/users/{id}/current-ride", s.handleCurrentRide).Methods("GET")
	api.HandleFunc("/drivers", s.handleDrivers).Methods("GET")
	api.HandleFunc("/drivers/available", s.handleAvailableDrivers).Methods("GET")
	api.HandleFunc("/drivers/{id}/rides", s.handleDriverRides).Methods("GET")
	api.HandleFunc("/drivers/{id}/board", s.handleDriverBoard).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/tiers", s.handleTiers).Methods("GET")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{identity}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type bookRequest struct {
	Pickup  string      `json:"pickup"`
	Dropoff string      `json:"dropoff"`
	User    models.User `json:"user"`
}

type scheduleRequest struct {
	bookRequest
	DateTime time.Time `json:"date_time"`
}

type acceptRequest struct {
	DriverID string `json:"driver_id"`
}

type ratingRequest struct {
	DriverID string `json:"driver_id"`
	UserID   string `json:"user_id"`
	Rating   int    `json:"rating"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decode(w, r, &req) {
		return
	}
	if req.User.ID == "" {
		http.Error(w, "user.id is required", 400)
		return
	}
	ride, err := s.Store.Book(r.Context(), models.BookingDetails{Pickup: req.Pickup, Dropoff: req.Dropoff}, req.User)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !decode(w, r, &req) {
		return
	}
	if req.User.ID == "" {
		http.Error(w, "user.id is required", 400)
		return
	}
	details := models.ScheduledBookingDetails{
		BookingDetails: models.BookingDetails{Pickup: req.Pickup, Dropoff: req.Dropoff},
		DateTime:       req.DateTime,
	}
	ride, err := s.Store.Schedule(r.Context(), details, req.User)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleListRides(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.Store.Rides())
}

func (s *Server) handlePendingRides(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.Store.PendingRides())
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	ride, ok := s.Store.Ride(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "ride not found", 404)
		return
	}
	writeJSON(w, 200, ride)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if !decode(w, r, &req) {
		return
	}
	if req.DriverID == "" {
		http.Error(w, "driver_id is required", 400)
		return
	}
	if !s.Matcher.CanAccept(req.DriverID) {
		http.Error(w, "driver already has an active ride", http.StatusConflict)
		return
	}
	ride, err := s.Store.Accept(r.Context(), mux.Vars(r)["id"], req.DriverID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, 200, ride)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	ride, err := s.Store.Complete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, 200, ride)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	ride, err := s.Store.Cancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, 200, ride)
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !decode(w, r, &req) {
		return
	}
	drv, err := s.Store.SubmitRating(r.Context(), mux.Vars(r)["id"], req.DriverID, req.UserID, req.Rating)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, 200, drv)
}

func (s *Server) handleCurrentRide(w http.ResponseWriter, r *http.Request) {
	ride, ok := s.Store.CurrentRide(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, 200, map[string]any{"status": models.StatusIdle})
		return
	}
	writeJSON(w, 200, ride)
}

func (s *Server) handleDrivers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.Store.Drivers())
}

func (s *Server) handleAvailableDrivers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.Matcher.Available())
}

func (s *Server) handleDriverRides(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.Store.ActiveDriverRides(mux.Vars(r)["id"]))
}

func (s *Server) handleDriverBoard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.Store.Driver(id); !ok {
		http.Error(w, "driver not found", 404)
		return
	}
	writeJSON(w, 200, s.Matcher.Board(id))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.Store.Leaderboard())
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, rating.Tiers())
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["identity"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Warn("ws upgrade failed", "identity", id, "error", err)
		return
	}
	sess := s.WSReg.Add(id, conn)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.WSReg.Remove(id, sess)
				return
			}
		}
	}()
}

// writeError maps store errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ridestore.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, ridestore.ErrRideNotFound), errors.Is(err, ridestore.ErrDriverNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ridestore.ErrInvalidTransition):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), 400)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
