// SPDX-License-Identifier: MIT

package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		dsn  string
		want any
	}{
		{"memory:", &MemoryStore{}},
		{"redis://" + mr.Addr() + "/0", &RedisStore{}},
		{"badger:memory", &BadgerStore{}},
		{"badger://" + filepath.Join(dir, "badger"), &BadgerStore{}},
		{"sqlite://" + filepath.Join(dir, "devices.db"), &SQLStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			s, err := Open(context.Background(), tt.dsn)
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestOpenErrors(t *testing.T) {
	for _, dsn := range []string{"", "postgres://localhost/db", "sqlite://", "/tmp/devices.db"} {
		t.Run(dsn, func(t *testing.T) {
			_, err := Open(context.Background(), dsn)
			require.Error(t, err)
		})
	}
}

func TestDSNPath(t *testing.T) {
	tests := map[string]string{
		"sqlite:///var/lib/biketrack/devices.db": "/var/lib/biketrack/devices.db",
		"sqlite:data/devices.db":                 "data/devices.db",
		"badger:///tmp/badger":                   "/tmp/badger",
	}
	for dsn, want := range tests {
		got, err := dsnPath(dsn)
		require.NoError(t, err, dsn)
		assert.Equal(t, want, got, dsn)
	}
}
