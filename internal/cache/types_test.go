package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeCache_GetTypeIDs(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewTypeCache(rdb, time.Minute)

	mock.ExpectMGet("shift:type:linac", "shift:type:booster").SetVal([]interface{}{"3", nil})

	hits, missing, err := c.GetTypeIDs(context.Background(), []string{"linac", "booster"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"linac": 3}, hits)
	assert.Equal(t, []string{"booster"}, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTypeCache_GetTypeIDs_Error(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewTypeCache(rdb, time.Minute)

	mock.ExpectMGet("shift:type:linac").SetErr(errors.New("connection refused"))

	_, _, err := c.GetTypeIDs(context.Background(), []string{"linac"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTypeCache_GetTypeIDs_Corrupted(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewTypeCache(rdb, time.Minute)

	mock.ExpectMGet("shift:type:linac").SetVal([]interface{}{"abc"})

	_, _, err := c.GetTypeIDs(context.Background(), []string{"linac"})
	assert.Error(t, err)
}

func TestTypeCache_SetAndInvalidate(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewTypeCache(rdb, 5*time.Minute)

	mock.ExpectSet("shift:type:linac", "3", 5*time.Minute).SetVal("OK")
	mock.ExpectDel("shift:type:linac", "shift:type:booster").SetVal(1)

	require.NoError(t, c.SetTypeIDs(context.Background(), map[string]int64{"linac": 3}))
	require.NoError(t, c.Invalidate(context.Background(), "linac", "booster"))
	require.NoError(t, c.Invalidate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
