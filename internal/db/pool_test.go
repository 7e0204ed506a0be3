package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig_Sizing(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *PoolConfig
		wantMax int32
		wantMin int32
	}{
		{"nil", nil, 10, 2},
		{"zero", &PoolConfig{}, 10, 2},
		{"explicit", &PoolConfig{MaxConns: 20, MinConns: 5}, 20, 5},
		{"min above max", &PoolConfig{MaxConns: 1}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMax, gotMin := tt.cfg.Sizing()
			assert.Equal(t, tt.wantMax, gotMax)
			assert.Equal(t, tt.wantMin, gotMin)
		})
	}
}

func TestOpen_BadConnString(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: parse config")
}

func TestPool_SatisfiedByMock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var p Pool = mock
	assert.NotNil(t, p)
}
