package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestOpen_DegradesToNop(t *testing.T) {
	logger := zap.NewNop()
	cases := []Config{
		{},
		{Mode: ModeNone},
		{Mode: ModePostgres},
		{Mode: ModeREST, REST: RESTConfig{BaseURL: "http://localhost"}},
		{Mode: "sqlite"},
	}
	for _, cfg := range cases {
		remote, closer := Open(context.Background(), cfg, logger)
		assert.IsType(t, Nop{}, remote, cfg.Mode)
		closer()
	}
}

func TestOpen_REST(t *testing.T) {
	remote, closer := Open(context.Background(), Config{
		Mode: ModeREST,
		REST: RESTConfig{BaseURL: "http://localhost:54321/rest/v1", APIKey: "key"},
	}, zap.NewNop())
	defer closer()

	assert.Equal(t, "rest", remote.Name())
}
