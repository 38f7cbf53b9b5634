package transport

import (
	"errors"
	"net/http"
	"strconv"

	"cardroom/domain/entities"
	"cardroom/infrastructure"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(mustJSON(v))
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entities.ErrRoundNotFound),
		errors.Is(err, entities.ErrRoomNotFound),
		errors.Is(err, entities.ErrUserNotFound):
		status = http.StatusNotFound
	case entities.IsPrecondition(err):
		status = http.StatusBadRequest
	}
	code, message := describeError(err)
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// limitParam parses the limit query parameter; absent means the service default
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, entities.NewValidationError("limit", "must be a non-negative integer")
	}
	return limit, nil
}

// authenticate verifies the bearer session on r, writing 401 when absent or invalid
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*infrastructure.Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "session token required", Code: CodePrecondition})
		return nil, false
	}
	session, err := s.sessions.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid session token", Code: CodePrecondition})
		return nil, false
	}
	return session, true
}

// requireAdmin admits only admin sessions, writing 401 or 403 otherwise
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	session, ok := s.authenticate(w, r)
	if !ok {
		return false
	}
	if !session.IsAdmin() {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "admin role required", Code: CodePrecondition})
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.ListRooms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.rooms.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rounds, err := s.rounds.ListRounds(r.Context(), r.URL.Query().Get("room_id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.rounds.GetRound(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (s *Server) handleVerifyRound(w http.ResponseWriter, r *http.Request) {
	verification, err := s.rounds.VerifyRound(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Verified bool `json:"verified"`
		Report   any  `json:"report"`
	}{Verified: verification.Verified(), Report: verification})
}

func (s *Server) handleListRefunds(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	refunds, err := s.rounds.ListRefunds(r.Context(), r.URL.Query().Get("room_id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refunds)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	balance, err := s.rooms.GetBalance(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": username, "balance": balance})
}

// handleWalletHistory serves the ledger entries of the session's own user, or of anyone to an admin
func (s *Server) handleWalletHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	username := r.PathValue("username")
	if session.Username != username && !session.IsAdmin() {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "cannot read another user's history", Code: CodePrecondition})
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := s.rooms.GetBalanceHistory(r.Context(), username, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
