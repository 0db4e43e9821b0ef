// Package telemetry publishes client.Observer events to Redis pub/sub as
// JSON records, so external tooling can watch transaction activity
// without linking against the client package.
package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spacewire-tools/spwrmap/pkg/rmap"
)

// Event is the JSON record published for every observed activity.
type Event struct {
	Kind          string    `json:"kind"`
	TransactionID uint16    `json:"transaction_id,omitempty"`
	PacketType    string    `json:"packet_type,omitempty"`
	OK            bool      `json:"ok,omitempty"`
	ElapsedMS     float64   `json:"elapsed_ms,omitempty"`
	TimeCode      uint8     `json:"time_code,omitempty"`
	Err           string    `json:"error,omitempty"`
	At            time.Time `json:"at"`
}

// Kind values for Event.Kind.
const (
	KindTransactionAllocated = "transaction.allocated"
	KindTransactionCompleted = "transaction.completed"
	KindBadFrame             = "frame.bad"
	KindTimeCodeEmitted      = "timecode.emitted"
	KindTimeCodeReceived     = "timecode.received"
)

// RedisSink publishes events to a single Redis pub/sub channel. It
// implements client.Observer (duck-typed — see pkg/client/observer.go
// for the exact method set required).
type RedisSink struct {
	rdb     *redis.Client
	channel string
	logger  *log.Logger
}

// NewRedisSink connects to addr and returns a sink publishing to
// channel. It fails fast with a Ping, validating the Redis connection at
// construction time.
func NewRedisSink(addr, password string, db int, channel string, logger *log.Logger) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisSink{rdb: rdb, channel: channel, logger: logger}, nil
}

func (s *RedisSink) publish(ev Event) {
	ev.At = time.Now()
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Printf("telemetry: marshal event: %v", err)
		return
	}
	if err := s.rdb.Publish(context.Background(), s.channel, payload).Err(); err != nil {
		s.logger.Printf("telemetry: publish event: %v", err)
	}
}

func (s *RedisSink) TransactionAllocated(id uint16, kind rmap.PacketType) {
	s.publish(Event{Kind: KindTransactionAllocated, TransactionID: id, PacketType: kind.String()})
}

func (s *RedisSink) TransactionCompleted(id uint16, kind rmap.PacketType, ok bool, elapsed time.Duration) {
	s.publish(Event{
		Kind:          KindTransactionCompleted,
		TransactionID: id,
		PacketType:    kind.String(),
		OK:            ok,
		ElapsedMS:     float64(elapsed) / float64(time.Millisecond),
	})
}

func (s *RedisSink) BadFrame(err error) {
	s.publish(Event{Kind: KindBadFrame, Err: err.Error()})
}

func (s *RedisSink) TimeCodeEmitted(tc uint8) {
	s.publish(Event{Kind: KindTimeCodeEmitted, TimeCode: tc})
}

func (s *RedisSink) TimeCodeReceived(tc uint8) {
	s.publish(Event{Kind: KindTimeCodeReceived, TimeCode: tc})
}

// Close releases the underlying Redis connection.
func (s *RedisSink) Close() error { return s.rdb.Close() }
