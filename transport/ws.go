package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	log "github.com/sirupsen/logrus"
)

// bearerToken reads the session token from the Authorization header or the token query parameter
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, entities.NewValidationError("token", "missing session token"))
		return
	}
	session, err := s.sessions.Verify(token)
	if err != nil {
		log.WithError(err).WithField("remote", r.RemoteAddr).Warn("Rejected websocket session")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid session token", Code: CodePrecondition})
		return
	}

	user, err := s.rooms.EnsureUser(r.Context(), session.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		log.WithError(err).Warn("Websocket accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	client := NewClient(session.Username, s.SendBuffer)
	s.hub.Register(client)
	s.metrics.UpdateActiveConnections(1)

	logger := log.WithFields(log.Fields{
		"username": session.Username,
		"remote":   r.RemoteAddr,
	})
	logger.Info("WebSocket connected")
	s.greet(r.Context(), client, user)

	ctx, cancel := context.WithCancel(r.Context())
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		s.writeLoop(ctx, c, client)
	}()

	readErr := s.readLoop(ctx, c, client)

	cancel()
	remaining := s.hub.Unregister(client)
	<-writeDone
	s.metrics.UpdateActiveConnections(-1)

	// The identity leaves its rooms once its last connection is gone
	if remaining == 0 {
		leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 10*time.Second)
		left, err := s.rooms.LeaveAllRooms(leaveCtx, session.Username)
		leaveCancel()
		if err != nil {
			logger.WithError(err).Error("Failed to leave rooms on disconnect")
		} else if len(left) > 0 {
			logger.WithField("rooms", left).Info("Left rooms on disconnect")
		}
	}

	status := websocket.CloseStatus(readErr)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		logger.Info("WebSocket disconnected")
		c.Close(websocket.StatusNormalClosure, "")
		return
	}
	logger.WithError(readErr).Info("WebSocket disconnected")
}

// greet queues the lobby room list and the user's balance for a new connection
func (s *Server) greet(ctx context.Context, client *Client, user *entities.User) {
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		log.WithError(err).WithField("username", client.Username).Warn("Failed to list rooms for new connection")
	} else {
		s.hub.Send(client, ServerMessage{Type: MessageRooms, Data: rooms})
	}
	s.hub.Send(client, ServerMessage{Type: MessageBalance, Data: events.BalanceChangedEvent{
		Username:   user.Username,
		OldBalance: user.Balance,
		NewBalance: user.Balance,
	}})
}

func (s *Server) readLoop(ctx context.Context, c *websocket.Conn, client *Client) error {
	for {
		var cmd Command
		if err := wsjson.Read(ctx, c, &cmd); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				// wsjson closes the connection after a bad frame, so report and stop
				s.hub.Send(client, replyError("", entities.NewValidationError("", "invalid JSON command")))
			}
			return err
		}
		s.hub.Send(client, s.dispatch(ctx, client, cmd))
	}
}

func (s *Server) writeLoop(ctx context.Context, c *websocket.Conn, client *Client) {
	for {
		select {
		case <-ctx.Done():
			s.drain(c, client)
			return
		case msg, ok := <-client.Outbound():
			if !ok {
				return
			}
			if err := s.write(ctx, c, msg); err != nil {
				log.WithError(err).WithField("username", client.Username).Debug("Websocket write failed")
				return
			}
		}
	}
}

// drain flushes replies queued before the reader stopped
func (s *Server) drain(c *websocket.Conn, client *Client) {
	for {
		select {
		case msg, ok := <-client.Outbound():
			if !ok {
				return
			}
			if err := s.write(context.Background(), c, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Server) write(ctx context.Context, c *websocket.Conn, msg ServerMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, s.WriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c, msg)
}

// dispatch executes one command for client and builds the reply
func (s *Server) dispatch(ctx context.Context, client *Client, cmd Command) ServerMessage {
	username := client.Username

	switch cmd.Type {
	case CommandCreateRoom:
		room, err := s.rooms.CreateRoom(ctx, username, cmd.Name)
		if err != nil {
			return replyError(cmd.ID, err)
		}
		return replyOK(cmd.ID, room)

	case CommandJoinRoom:
		room, err := s.rooms.JoinRoom(ctx, cmd.RoomID, username)
		if err != nil {
			return replyError(cmd.ID, err)
		}
		return replyOK(cmd.ID, room)

	case CommandLeaveRoom:
		room, err := s.rooms.LeaveRoom(ctx, cmd.RoomID, username)
		if err != nil {
			return replyError(cmd.ID, err)
		}
		return replyOK(cmd.ID, room)

	case CommandPlaceBet:
		room, err := s.rooms.PlaceBet(ctx, cmd.RoomID, username, cmd.Amount)
		if err != nil {
			return replyError(cmd.ID, err)
		}
		return replyOK(cmd.ID, room)

	case CommandStartRound:
		round, err := s.rounds.StartRound(ctx, cmd.RoomID, username, cmd.GameType)
		if err != nil {
			return replyError(cmd.ID, err)
		}
		return replyOK(cmd.ID, round)

	case CommandListRooms:
		rooms, err := s.rooms.ListRooms(ctx)
		if err != nil {
			return replyError(cmd.ID, err)
		}
		return replyOK(cmd.ID, rooms)

	case CommandGetBalance:
		balance, err := s.rooms.GetBalance(ctx, username)
		if err != nil {
			return replyError(cmd.ID, err)
		}
		return replyOK(cmd.ID, map[string]any{"username": username, "balance": balance})

	case CommandSubscribeLobby:
		s.hub.SubscribeLobby(client)
		rooms, err := s.rooms.ListRooms(ctx)
		if err != nil {
			return replyError(cmd.ID, err)
		}
		return replyOK(cmd.ID, rooms)

	case CommandUnsubscribeLobby:
		s.hub.UnsubscribeLobby(client)
		return replyOK(cmd.ID, nil)

	default:
		return replyError(cmd.ID, entities.NewValidationError("type", "unknown command "+cmd.Type))
	}
}
