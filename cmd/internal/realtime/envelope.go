package realtime

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Version is the wire version tag carried by every envelope.
const Version = "taskboard.events.v1"

// Envelope types sent to clients.
const (
	TypeBoardEvent = "board.event"
	TypeError      = "error"
)

// Envelope is the framing for every server-to-client message.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newEnvelope(typ string, payload json.RawMessage, ts time.Time) Envelope {
	return Envelope{
		V:       Version,
		Type:    typ,
		ID:      newRandomHex(10),
		TS:      ts,
		Payload: payload,
	}
}

// newRandomHex returns a random hex string of length 2*nBytes, or "" when the
// system randomness source fails.
func newRandomHex(nBytes int) string {
	if nBytes <= 0 {
		nBytes = 16
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
