package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RoundAuditRecord is the queue entry consumed by round export collaborators
type RoundAuditRecord struct {
	RoundID        string          `json:"round_id"`
	RoomID         string          `json:"room_id"`
	Variant        string          `json:"game_type"`
	Seed           string          `json:"seed"`
	SeedCommitment string          `json:"seed_commitment,omitempty"`
	Pot            int64           `json:"pot"`
	Winners        []string        `json:"winners"`
	Round          *entities.Round `json:"round"`
	Timestamp      int64           `json:"timestamp"`
}

// listPusher is the slice of the redis client the audit publisher needs
type listPusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisAuditPublisher pushes every settled round onto a Redis list.
// Events other than RoundSettled are ignored.
type RedisAuditPublisher struct {
	client    listPusher
	queueName string
	timeout   time.Duration
}

// NewRedisClient creates a client and checks the server answers
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisAuditPublisher creates a new audit publisher writing to queueName
func NewRedisAuditPublisher(client listPusher, queueName string) *RedisAuditPublisher {
	return &RedisAuditPublisher{
		client:    client,
		queueName: queueName,
		timeout:   3 * time.Second,
	}
}

// Publish pushes settled rounds to the audit queue
func (p *RedisAuditPublisher) Publish(event events.Event) error {
	settled, ok := event.(events.RoundSettledEvent)
	if !ok || settled.Round == nil {
		return nil
	}
	round := settled.Round

	record := RoundAuditRecord{
		RoundID:        round.ID,
		RoomID:         round.RoomID,
		Variant:        string(round.Variant),
		Seed:           round.Seed,
		SeedCommitment: round.SeedCommitment,
		Pot:            round.Pot,
		Winners:        round.Winners,
		Round:          round,
		Timestamp:      round.CreatedAt.UnixMilli(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal round audit record: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.RPush(ctx, p.queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queueName, err)
	}

	log.WithFields(log.Fields{
		"roundId": round.ID,
		"queue":   p.queueName,
	}).Debug("Queued settled round for audit")
	return nil
}
