package storage

import (
	"context"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisKV implements the KV interface on a redis server. Every key is
// prefixed with Namespace so several stores can share one server.
// Scans are SCAN followed by a sort of the matching keys.
type RedisKV struct {
	client    *redis.Client
	ctx       context.Context
	Namespace string
}

// NewRedisKV connects to addr (host:port) and checks the connection.
func NewRedisKV(addr string, password string, db int, namespace string) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorf("unable to connect to redis at %s: %v", addr, err)
		client.Close()
		return nil, err
	}

	r := RedisKV{}
	r.client = client
	r.ctx = ctx
	r.Namespace = namespace
	return &r, nil
}

func (r *RedisKV) key(k []byte) string {
	return r.Namespace + string(k)
}

func (r *RedisKV) Get(key []byte) ([]byte, error) {
	v, err := r.client.Get(r.ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *RedisKV) Set(key []byte, value []byte) error {
	return r.client.Set(r.ctx, r.key(key), value, 0).Err()
}

// SetMany wraps the writes in MULTI/EXEC.
func (r *RedisKV) SetMany(pairs []KeyValue) error {
	_, err := r.client.TxPipelined(r.ctx, func(pipe redis.Pipeliner) error {
		for _, p := range pairs {
			pipe.Set(r.ctx, r.key(p.Key), p.Value, 0)
		}
		return nil
	})
	return err
}

func (r *RedisKV) Delete(key []byte) error {
	return r.client.Del(r.ctx, r.key(key)).Err()
}

func (r *RedisKV) DeleteMany(keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = r.key(k)
	}
	return r.client.Del(r.ctx, names...).Err()
}

func (r *RedisKV) Scan(lower []byte, upper []byte, fn func(key []byte, value []byte) error) error {
	// match on the common prefix of the bounds, then filter
	common := lower
	if upper != nil {
		n := 0
		for n < len(lower) && n < len(upper) && lower[n] == upper[n] {
			n++
		}
		common = lower[:n]
	}

	var names []string
	iter := r.client.Scan(r.ctx, 0, globEscape(r.key(common))+"*", 1000).Iterator()
	for iter.Next(r.ctx) {
		k := iter.Val()[len(r.Namespace):]
		if k >= string(lower) && (upper == nil || k < string(upper)) {
			names = append(names, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	sort.Strings(names)

	const chunk = 500
	for i := 0; i < len(names); i += chunk {
		end := i + chunk
		if end > len(names) {
			end = len(names)
		}
		values, err := r.client.MGet(r.ctx, names[i:end]...).Result()
		if err != nil {
			return err
		}
		for j, v := range values {
			s, ok := v.(string)
			if !ok {
				// deleted since the scan
				continue
			}
			if err := fn([]byte(names[i+j][len(r.Namespace):]), []byte(s)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}

func globEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
