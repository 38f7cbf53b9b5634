package transport

import (
	"context"
	"net/http"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/interfaces"
	"cardroom/infrastructure"

	log "github.com/sirupsen/logrus"
)

// RoomOperations is the room surface the transport drives
type RoomOperations interface {
	EnsureUser(ctx context.Context, username string) (*entities.User, error)
	GetBalance(ctx context.Context, username string) (int64, error)
	GetBalanceHistory(ctx context.Context, username string, limit int) ([]*entities.BalanceHistory, error)
	CreateRoom(ctx context.Context, host, name string) (*entities.Room, error)
	JoinRoom(ctx context.Context, roomID, username string) (*entities.Room, error)
	LeaveRoom(ctx context.Context, roomID, username string) (*entities.Room, error)
	LeaveAllRooms(ctx context.Context, username string) ([]string, error)
	PlaceBet(ctx context.Context, roomID, username string, amount float64) (*entities.Room, error)
	GetRoom(ctx context.Context, roomID string) (*entities.Room, error)
	ListRooms(ctx context.Context) ([]*entities.Room, error)
}

// RoundOperations is the round surface the transport drives
type RoundOperations interface {
	StartRound(ctx context.Context, roomID, caller, variantName string) (*entities.Round, error)
	GetRound(ctx context.Context, id string) (*entities.Round, error)
	ListRounds(ctx context.Context, roomID string, limit int) ([]*entities.Round, error)
	VerifyRound(ctx context.Context, id string) (*interfaces.RoundVerification, error)
	ListRefunds(ctx context.Context, roomID string, limit int) ([]*entities.RefundEvent, error)
}

// SessionVerifier turns a bearer token into a session
type SessionVerifier interface {
	Verify(token string) (*infrastructure.Session, error)
}

// ConnectionMetrics tracks open realtime connections
type ConnectionMetrics interface {
	UpdateActiveConnections(delta int64)
}

type noopConnectionMetrics struct{}

func (noopConnectionMetrics) UpdateActiveConnections(int64) {}

// Server exposes the websocket endpoint and the JSON read surface
type Server struct {
	rooms    RoomOperations
	rounds   RoundOperations
	sessions SessionVerifier
	hub      *Hub
	metrics  ConnectionMetrics

	// OriginPatterns is passed to websocket.Accept
	OriginPatterns []string
	// SendBuffer is the outbound queue size per connection
	SendBuffer int
	// WriteTimeout bounds a single websocket write
	WriteTimeout time.Duration
}

// NewServer creates a transport server
func NewServer(rooms RoomOperations, rounds RoundOperations, sessions SessionVerifier, hub *Hub, metrics ConnectionMetrics) *Server {
	if metrics == nil {
		metrics = noopConnectionMetrics{}
	}
	return &Server{
		rooms:          rooms,
		rounds:         rounds,
		sessions:       sessions,
		hub:            hub,
		metrics:        metrics,
		OriginPatterns: []string{"*"},
		SendBuffer:     32,
		WriteTimeout:   5 * time.Second,
	}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /rooms", s.handleListRooms)
	mux.HandleFunc("GET /rooms/{id}", s.handleGetRoom)
	mux.HandleFunc("GET /rounds", s.handleListRounds)
	mux.HandleFunc("GET /rounds/{id}", s.handleGetRound)
	mux.HandleFunc("GET /rounds/{id}/verify", s.handleVerifyRound)
	mux.HandleFunc("GET /refunds", s.handleListRefunds)
	mux.HandleFunc("GET /wallet/{username}", s.handleWallet)
	mux.HandleFunc("GET /wallet/{username}/history", s.handleWalletHistory)
	return logMiddleware(mux)
}

// logMiddleware logs the method, path and duration of each request
func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Debug("HTTP request")
	})
}
