package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
)

const (
	TypeCustomerCreated = "customer.created"

	// CurrentVersion is the only envelope version this build reads and writes.
	CurrentVersion = 1
)

// ErrMalformed marks a message that can never be processed: bad JSON, an
// unsupported version or a checksum mismatch.
var ErrMalformed = errors.New("malformed event")

// CustomerCreated is published once by the registry for every new customer.
type CustomerCreated struct {
	CustomerID int64  `json:"customerId"`
	Name       string `json:"name"`
	NationalID string `json:"nationalId"`
	Active     bool   `json:"active"`
}

// Key is the partition / message key: all events of one customer share it.
func (e CustomerCreated) Key() string {
	return strconv.FormatInt(e.CustomerID, 10)
}

// Envelope wraps every message on the bus. Checksum is the hex SHA-256 of the
// RFC 8785 canonical form of Data.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Version    int             `json:"version"`
	OccurredAt time.Time       `json:"occurredAt"`
	Checksum   string          `json:"checksum"`
	Data       json.RawMessage `json:"data"`
}

func NewEnvelope(eventType string, data any, occurredAt time.Time) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	sum, err := checksum(raw)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		Version:    CurrentVersion,
		OccurredAt: occurredAt.UTC(),
		Checksum:   sum,
		Data:       raw,
	}, nil
}

func NewCustomerCreated(evt CustomerCreated, occurredAt time.Time) (Envelope, error) {
	return NewEnvelope(TypeCustomerCreated, evt, occurredAt)
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses and verifies an envelope. Every failure wraps ErrMalformed.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Version != CurrentVersion {
		return Envelope{}, fmt.Errorf("%w: unsupported version %d", ErrMalformed, env.Version)
	}
	if env.Type == "" || len(env.Data) == 0 {
		return Envelope{}, fmt.Errorf("%w: missing type or data", ErrMalformed)
	}
	sum, err := checksum(env.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if sum != env.Checksum {
		return Envelope{}, fmt.Errorf("%w: checksum mismatch for %s", ErrMalformed, env.ID)
	}
	return env, nil
}

// CustomerCreated decodes the payload of a customer.created envelope.
func (e Envelope) CustomerCreated() (CustomerCreated, error) {
	if e.Type != TypeCustomerCreated {
		return CustomerCreated{}, fmt.Errorf("%w: expected %s, got %s", ErrMalformed, TypeCustomerCreated, e.Type)
	}
	var evt CustomerCreated
	if err := json.Unmarshal(e.Data, &evt); err != nil {
		return CustomerCreated{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if evt.CustomerID == 0 {
		return CustomerCreated{}, fmt.Errorf("%w: missing customerId", ErrMalformed)
	}
	return evt, nil
}

func checksum(raw []byte) (string, error) {
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
