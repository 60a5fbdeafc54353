package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_ValueAndScan(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  JSONMap
	}{
		{name: "bytes", input: []byte(`{"battery":3.7}`), want: JSONMap{"battery": 3.7}},
		{name: "string", input: `{"fw":"1.2"}`, want: JSONMap{"fw": "1.2"}},
		{name: "nil", input: nil, want: JSONMap{}},
		{name: "empty", input: []byte{}, want: JSONMap{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m JSONMap
			require.NoError(t, m.Scan(tt.input))
			assert.Equal(t, tt.want, m)
		})
	}

	var nilMap JSONMap
	v, err := nilMap.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	var m JSONMap
	assert.Error(t, m.Scan(42))
}

func TestRefreshToken_IsExpired(t *testing.T) {
	now := time.Now()
	token := RefreshToken{ExpiresAt: now}

	assert.False(t, token.IsExpired(now))
	assert.True(t, token.IsExpired(now.Add(time.Second)))
}

func TestUser_CanManageSensors(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).CanManageSensors())
	assert.True(t, (&User{Role: RoleFarmer}).CanManageSensors())
	assert.False(t, (&User{Role: RoleConsumer}).CanManageSensors())
}
