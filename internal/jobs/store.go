// Package jobs tracks render job status in Redis so the API and the
// worker can share state across processes.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediaforge/renderd/internal/config"
	"github.com/mediaforge/renderd/pkg/models"
)

// ErrNotFound indicates an unknown job ID.
var ErrNotFound = errors.New("job not found")

// Completed jobs stay queryable for a day; in-flight jobs never expire.
const completedTTL = 24 * time.Hour

// Store provides job status persistence backed by Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a job store and verifies the connection.
func NewStore(cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing client (used by tests).
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Put stores the status for a job, stamping the update time. Terminal
// states get a TTL so finished jobs age out.
func (s *Store) Put(ctx context.Context, status *models.JobStatus) error {
	status.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal job status: %w", err)
	}

	var ttl time.Duration
	if status.Status == models.JobStatusSuccess || status.Status == models.JobStatusFailed {
		ttl = completedTTL
	}
	return s.client.Set(ctx, key(status.ID), data, ttl).Err()
}

// Get retrieves a job status by ID.
func (s *Store) Get(ctx context.Context, id string) (*models.JobStatus, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job status: %w", err)
	}

	var status models.JobStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job status: %w", err)
	}
	return &status, nil
}

func key(id string) string {
	return "job:" + id
}
