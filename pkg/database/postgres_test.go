package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/pkg/config"
)

type pingerStub struct{ err error }

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "sics", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=sics sslmode=disable", dsn)
}

func TestReady(t *testing.T) {
	require.NoError(t, Ready(context.Background(), map[string]Pinger{"postgres": pingerStub{}, "redis": nil}))

	err := Ready(context.Background(), map[string]Pinger{"redis": pingerStub{err: errors.New("down")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis unavailable")
}
