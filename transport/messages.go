package transport

import (
	"encoding/json"
	"errors"

	"cardroom/domain/entities"
)

// Client command types
const (
	CommandCreateRoom       = "create_room"
	CommandJoinRoom         = "join_room"
	CommandLeaveRoom        = "leave_room"
	CommandPlaceBet         = "place_bet"
	CommandStartRound       = "start_round"
	CommandListRooms        = "list_rooms"
	CommandGetBalance       = "get_balance"
	CommandSubscribeLobby   = "subscribe_lobby"
	CommandUnsubscribeLobby = "unsubscribe_lobby"
)

// Server message types
const (
	MessageOK          = "ok"
	MessageError       = "error"
	MessageRoomUpdate  = "room_update"
	MessageRoomClosed  = "room_closed"
	MessageRooms       = "rooms"
	MessageRoundResult = "round_result"
	MessageBalance     = "balance"
	MessageRefund      = "refund"
)

// Error codes sent to clients
const (
	CodePrecondition = "precondition"
	CodeInternal     = "internal"
)

// Command is a request read from a websocket client
type Command struct {
	Type     string  `json:"type"`
	ID       string  `json:"id,omitempty"`
	RoomID   string  `json:"room_id,omitempty"`
	Name     string  `json:"name,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	GameType string  `json:"game_type,omitempty"`
}

// ServerMessage is written to websocket clients, as replies and as notifications
type ServerMessage struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	RoomID string `json:"room_id,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// errorBody is the JSON body of failed HTTP requests
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// describeError maps err to a client-safe message. Precondition failures carry
// their own text; store and internal failures are reported generically.
func describeError(err error) (code, message string) {
	if entities.IsPrecondition(err) {
		var validation *entities.ValidationError
		if errors.As(err, &validation) {
			return CodePrecondition, validation.Error()
		}
		return CodePrecondition, err.Error()
	}
	return CodeInternal, "internal error"
}

func replyOK(id string, data any) ServerMessage {
	return ServerMessage{Type: MessageOK, ID: id, Data: data}
}

func replyError(id string, err error) ServerMessage {
	code, message := describeError(err)
	return ServerMessage{Type: MessageError, ID: id, Code: code, Error: message}
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"error":"internal error","code":"internal"}`)
	}
	return data
}
