// Package rediscache caches an organization's project list in Redis in
// front of a storage.Directory.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/nonibytes/eventsearch/eventsearch/storage"
)

const (
	KeyPrefix  = "eventsearch:projects:"
	DefaultTTL = 5 * time.Minute
)

// ErrMiss is returned by Client.Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// Client is the subset of Redis the cache needs
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// Observer is told the outcome of every cache operation, e.g. ("get", "hit").
type Observer interface {
	CacheResult(op, result string)
}

type nopObserver struct{}

func (nopObserver) CacheResult(string, string) {}

// Directory wraps a storage.Directory. Cache failures never fail a lookup;
// they fall through to the wrapped directory.
type Directory struct {
	next     storage.Directory
	client   Client
	ttl      time.Duration
	observer Observer
}

var _ storage.Directory = (*Directory)(nil)

func New(next storage.Directory, client Client, ttl time.Duration, observer Observer) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Directory{next: next, client: client, ttl: ttl, observer: observer}
}

func key(orgID int64) string {
	return fmt.Sprintf("%s%d", KeyPrefix, orgID)
}

func (d *Directory) ListProjects(ctx context.Context, orgID int64) ([]storage.Project, error) {
	b, err := d.client.Get(ctx, key(orgID))
	switch {
	case err == nil:
		var projects []storage.Project
		if err := msgpack.Unmarshal(b, &projects); err == nil {
			d.observer.CacheResult("get", "hit")
			return projects, nil
		}
		d.observer.CacheResult("get", "error")
	case errors.Is(err, ErrMiss):
		d.observer.CacheResult("get", "miss")
	default:
		d.observer.CacheResult("get", "error")
	}

	projects, err := d.next.ListProjects(ctx, orgID)
	if err != nil {
		return nil, err
	}

	data, err := msgpack.Marshal(projects)
	if err != nil {
		d.observer.CacheResult("set", "error")
		return projects, nil
	}
	if err := d.client.Set(ctx, key(orgID), data, d.ttl); err != nil {
		d.observer.CacheResult("set", "error")
	} else {
		d.observer.CacheResult("set", "success")
	}
	return projects, nil
}

func (d *Directory) LoadProjects(ctx context.Context, orgID int64, ids []int64) ([]storage.Project, error) {
	all, err := d.ListProjects(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return storage.FilterProjects(orgID, all, ids)
}

// AddProject writes through and drops the organization's cached list.
func (d *Directory) AddProject(ctx context.Context, p storage.Project) error {
	if err := d.next.AddProject(ctx, p); err != nil {
		return err
	}
	if err := d.client.Del(ctx, key(p.OrganizationID)); err != nil {
		d.observer.CacheResult("delete", "error")
	} else {
		d.observer.CacheResult("delete", "success")
	}
	return nil
}

func (d *Directory) Close() error {
	err := d.next.Close()
	if cerr := d.client.Close(); err == nil {
		err = cerr
	}
	return err
}

type redisClient struct {
	client *redis.Client
}

// Dial connects to a single Redis node and pings it.
func Dial(ctx context.Context, addr, password string, db int) (Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return &redisClient{client: client}, nil
}

func (r *redisClient) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	return b, err
}

func (r *redisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisClient) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
