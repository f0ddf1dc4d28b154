// Package redis implements flowchart.Store on Redis. Documents are stored
// as JSON strings under prefix+id, and a sorted set indexes the ids by
// expiry so List can drop expired entries lazily.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/codec"
)

// DefaultPrefix namespaces the keys written by a Store.
const DefaultPrefix = "flowchart:document:"

// noExpiry is the index score of documents saved without a TTL.
const noExpiry = 4102444800 // 2100-01-01

// Store implements flowchart.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ flowchart.Store = (*Store)(nil)

type Option func(*Store)

// WithTTL sets the expiration of saved documents. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to the Redis server at address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Save writes doc and indexes its id.
func (s *Store) Save(ctx context.Context, id string, doc *flowchart.Document) error {
	data, err := codec.Encode(*doc, codec.FormatJSON)
	if err != nil {
		return err
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(id), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: save %s: %w", id, err)
	}
	return nil
}

// Load reads the document saved under id.
func (s *Store) Load(ctx context.Context, id string) (*flowchart.Document, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, flowchart.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: load %s: %w", id, err)
	}

	doc, err := codec.Decode(val, codec.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("redis: load %s: %w", id, err)
	}
	return &doc, nil
}

// Delete removes the document and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete %s: %w", id, err)
	}
	return nil
}

// List returns the ids of live documents, pruning expired index entries
// first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("redis: prune index: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list: %w", err)
	}
	return ids, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
