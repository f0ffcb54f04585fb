package websockets

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/planetcalm/petmap/internal/model"
)

// Event types pushed to viewers.
const (
	EventNewPin      = "new-pin"
	EventMemberCount = "member-count"
)

// Message types accepted from viewers.
const (
	MsgTypeGetMemberCount = "get-member-count"
)

// Event is one push to connected viewers.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// NewPinEvent is the payload broadcast after every successful pin creation.
type NewPinEvent struct {
	ID          uuid.UUID          `json:"id"`
	PetName     string             `json:"petName"`
	PetType     string             `json:"petType"`
	PetStatus   string             `json:"petStatus"`
	Location    model.Location     `json:"location"`
	Coordinates model.Coordinates  `json:"coordinates"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// MemberCountEvent carries the refreshed total.
type MemberCountEvent struct {
	Count int64 `json:"count"`
}

// Client is one connected viewer session. The buffered send channel keeps
// a stalled connection from delaying fan-out to everyone else.
type Client struct {
	Conn *websocket.Conn
	send chan []byte
}

// incomingMessage is what viewers may send over the channel.
type incomingMessage struct {
	Type string `json:"type"`
}
