// Package drafts keeps unfinished wizard progress in Redis so a reload does
// not lose it. Files are never stored here.
package drafts

import (
	"context"
	"errors"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/wizard"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TTL       = 24 * time.Hour
	keyPrefix = "draft:"
)

var ErrMissing = errors.New("draft not found")

type Draft struct {
	Step      wizard.Step `json:"step"`
	Form      wizard.Form `json:"form"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// KV is the slice of a key/value store the draft store needs.
type KV interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

type redisKV struct {
	rdb redis.Cmdable
}

// RedisKV adapts a go-redis client. A missing key comes back as ErrMissing.
func RedisKV(rdb redis.Cmdable) KV { return redisKV{rdb: rdb} }

func (r redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r redisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMissing
	}
	return v, err
}

func (r redisKV) Del(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

type Store struct {
	kv  KV
	now func() time.Time
}

func NewStore(kv KV) *Store { return &Store{kv: kv, now: time.Now} }

func checkID(op, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Invalid(op, map[string]string{"id": "uuid"})
	}
	return nil
}

// Save overwrites the draft under id and restarts its TTL.
func (s *Store) Save(ctx context.Context, id string, d Draft) (Draft, error) {
	const op = "drafts.Save"
	if err := checkID(op, id); err != nil {
		return Draft{}, err
	}
	if !d.Step.Valid() {
		d.Step = wizard.PersonalInfo
	}
	d.Form.Normalize()
	d.UpdatedAt = s.now().UTC()

	body, err := json.Marshal(d)
	if err != nil {
		return Draft{}, err
	}
	if err := s.kv.Set(ctx, keyPrefix+id, string(body), TTL); err != nil {
		return Draft{}, apperr.Wrap(apperr.Persistence, op, err, "could not save draft")
	}
	return d, nil
}

func (s *Store) Load(ctx context.Context, id string) (Draft, error) {
	const op = "drafts.Load"
	if err := checkID(op, id); err != nil {
		return Draft{}, err
	}
	raw, err := s.kv.Get(ctx, keyPrefix+id)
	if errors.Is(err, ErrMissing) {
		return Draft{}, apperr.New(apperr.NotFound, op, "draft not found")
	}
	if err != nil {
		return Draft{}, apperr.Wrap(apperr.Persistence, op, err, "could not load draft")
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		// unreadable drafts are treated as expired
		_ = s.kv.Del(ctx, keyPrefix+id)
		return Draft{}, apperr.New(apperr.NotFound, op, "draft not found")
	}
	return d, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "drafts.Delete"
	if err := checkID(op, id); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, keyPrefix+id); err != nil {
		return apperr.Wrap(apperr.Persistence, op, err, "could not delete draft")
	}
	return nil
}
