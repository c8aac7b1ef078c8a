// SPDX-License-Identifier: MIT

// Package kvstore persists device records as flat symbol-keyed maps.
//
// Every backend stores the map produced by secrets.ToKV under the device ID,
// so a record read back with secrets.FromKV is identical to the one written.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get and Delete for unknown device IDs.
var ErrNotFound = errors.New("device not found")

// Store is a device-keyed map store. Implementations are safe for
// concurrent use.
type Store interface {
	Put(ctx context.Context, deviceID string, kv map[string]string) error
	Get(ctx context.Context, deviceID string) (map[string]string, error)
	Delete(ctx context.Context, deviceID string) error
	// List returns the stored device IDs in ascending order.
	List(ctx context.Context) ([]string, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Open selects a backend from a DSN:
//
//	memory:
//	redis://[:password@]host:port/db
//	badger:memory
//	badger:///var/lib/biketrack/devices
//	sqlite:///var/lib/biketrack/devices.db
func Open(ctx context.Context, dsn string) (Store, error) {
	scheme, rest, ok := strings.Cut(dsn, ":")
	if !ok {
		return nil, fmt.Errorf("invalid store DSN %q: missing scheme", dsn)
	}

	switch strings.ToLower(scheme) {
	case "memory", "mem":
		return NewMemoryStore(), nil
	case "redis", "rediss":
		opts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse redis DSN: %w", err)
		}
		return NewRedisStore(ctx, opts)
	case "badger":
		if rest == "memory" {
			return OpenBadgerStore("", true)
		}
		path, err := dsnPath(dsn)
		if err != nil {
			return nil, err
		}
		return OpenBadgerStore(path, false)
	case "sqlite":
		path, err := dsnPath(dsn)
		if err != nil {
			return nil, err
		}
		return OpenSQLStore(ctx, path)
	default:
		return nil, fmt.Errorf("unknown store backend %q (supported: memory, redis, badger, sqlite)", scheme)
	}
}

func dsnPath(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store DSN %q: %w", dsn, err)
	}
	path := u.Opaque
	if path == "" {
		path = u.Host + u.Path
	}
	if path == "" {
		return "", fmt.Errorf("invalid store DSN %q: missing path", dsn)
	}
	return path, nil
}

func checkID(deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return errors.New("device ID cannot be empty")
	}
	return nil
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
