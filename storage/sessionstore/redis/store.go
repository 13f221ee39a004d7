// Package redisstore is a Redis-backed session.Storage.
//
// Each dashboard session owns a key namespace `darasa:sess:<sid>:*` holding
// the token, account type, identity snapshot and pending flashes; clearing a
// session deletes the whole namespace.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

const keyPrefix = "darasa:sess:"

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ session.Storage = (*Store)(nil)

func Open(ctx context.Context, conf *core.Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &Store{client: client, ttl: conf.Server.SessionTTL}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) LoadSnapshot(ctx context.Context, sid string) (session.Snapshot, error) {
	raw, err := s.client.Get(ctx, snapshotKey(sid)).Result()
	if err == redis.Nil {
		return session.Snapshot{}, session.ErrNoSnapshot
	}
	if err != nil {
		return session.Snapshot{}, errors.Wrap(err, "reading session snapshot")
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return session.Snapshot{}, errors.Wrap(err, "unmarshaling session snapshot")
	}
	return snap, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, sid string, snap session.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshaling session snapshot")
	}
	// full replace of the persisted snapshot, never a merge
	if err := s.client.Set(ctx, snapshotKey(sid), raw, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "writing session snapshot")
	}
	return nil
}

func (s *Store) ClearNamespace(ctx context.Context, sid string) error {
	keys, err := s.client.Keys(ctx, keyPrefix+sid+":*").Result()
	if err != nil {
		return errors.Wrap(err, "listing session namespace keys")
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "deleting session namespace")
	}
	return nil
}

func (s *Store) PushFlash(ctx context.Context, sid string, f session.Flash) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "marshaling flash")
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, flashKey(sid), raw)
	pipe.Expire(ctx, flashKey(sid), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "pushing flash")
	}
	return nil
}

func (s *Store) PopFlashes(ctx context.Context, sid string) ([]session.Flash, error) {
	pipe := s.client.TxPipeline()
	items := pipe.LRange(ctx, flashKey(sid), 0, -1)
	pipe.Del(ctx, flashKey(sid))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrap(err, "popping flashes")
	}

	raws, err := items.Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading flashes")
	}
	flashes := make([]session.Flash, 0, len(raws))
	for _, raw := range raws {
		var f session.Flash
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			continue // skip corrupt entries
		}
		flashes = append(flashes, f)
	}
	return flashes, nil
}

func snapshotKey(sid string) string { return keyPrefix + sid + ":snapshot" }
func flashKey(sid string) string    { return keyPrefix + sid + ":flashes" }
