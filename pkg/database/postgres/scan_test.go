package postgres

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanTarget struct {
	ID        int64  `db:"id"`
	PlayerTag string `db:"player_tag"`
	CreatedAt string
	Ignored   string `db:"-"`
	private   string
}

func TestGetStructInfo(t *testing.T) {
	info := getStructInfo(reflect.TypeOf(scanTarget{}))
	require.Len(t, info.fields, 3)

	names := make([]string, 0, len(info.fields))
	for _, f := range info.fields {
		names = append(names, f.name)
	}
	assert.Contains(t, names, "id")
	assert.Contains(t, names, "player_tag")
	assert.Contains(t, names, "created_at")
	assert.NotContains(t, names, "ignored")
	assert.NotContains(t, names, "private")
}

func TestGetStructInfoCached(t *testing.T) {
	a := getStructInfo(reflect.TypeOf(scanTarget{}))
	b := getStructInfo(reflect.TypeOf(scanTarget{}))
	assert.Same(t, a, b)
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"PlayerID":    "player_i_d",
		"CreatedAt":   "created_at",
		"Name":        "name",
		"MaxStamina":  "max_stamina",
		"XPBoost":     "x_p_boost",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, validateConfig(cfg))

	bad := DefaultConfig()
	bad.DB.Host = ""
	assert.ErrorIs(t, validateConfig(bad), ErrInvalidConfig)

	bad = DefaultConfig()
	bad.DB.Port = 0
	assert.ErrorIs(t, validateConfig(bad), ErrInvalidConfig)

	bad = DefaultConfig()
	bad.Pool.MinConns = 50
	assert.ErrorIs(t, validateConfig(bad), ErrInvalidConfig)
}

func TestBuildConnString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DB.Password = "secret"
	s := buildConnString(cfg)
	assert.Contains(t, s, "host=localhost")
	assert.Contains(t, s, "dbname=riki")
	assert.Contains(t, s, "password=secret")
	assert.Contains(t, s, "sslmode=disable")
}
