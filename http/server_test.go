package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewServerAddr(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		port int
		want string
	}{
		{port: 8501, want: ":8501"},
		{port: 9000, want: ":9000"},
	}
	for _, tt := range tests {
		config := DefaultServerConfig()
		config.Port = tt.port
		assert.Equal(t, tt.want, NewServer(config, env.api, zap.NewNop()).Addr())
	}
}
