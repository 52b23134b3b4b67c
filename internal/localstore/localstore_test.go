package localstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type creds struct {
	ProjectID string `json:"projectId"`
	Key       string `json:"key"`
}

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client), mr
}

// exerciseSlots runs the shared contract against any implementation.
func exerciseSlots(t *testing.T, s Slots) {
	t.Helper()
	ctx := context.Background()

	var got creds
	assert.ErrorIs(t, s.Get(ctx, SlotCredentials, &got), ErrNotFound)

	require.NoError(t, s.Set(ctx, SlotCredentials, creds{ProjectID: "abc", Key: "k1"}))
	require.NoError(t, s.Get(ctx, SlotCredentials, &got))
	assert.Equal(t, creds{ProjectID: "abc", Key: "k1"}, got)

	require.NoError(t, s.Set(ctx, SlotCredentials, creds{ProjectID: "xyz", Key: "k2"}))
	require.NoError(t, s.Get(ctx, SlotCredentials, &got))
	assert.Equal(t, "xyz", got.ProjectID)

	require.NoError(t, s.Delete(ctx, SlotCredentials))
	assert.ErrorIs(t, s.Get(ctx, SlotCredentials, &got), ErrNotFound)
	require.NoError(t, s.Delete(ctx, SlotCredentials), "deleting an empty slot")

	var flag bool
	require.NoError(t, s.Set(ctx, SlotAdminAuth, true))
	require.NoError(t, s.Get(ctx, SlotAdminAuth, &flag))
	assert.True(t, flag)
}

func TestMemory_Contract(t *testing.T) {
	exerciseSlots(t, NewMemory())
}

func TestRedis_Contract(t *testing.T) {
	r, _ := setupTestRedis(t)
	exerciseSlots(t, r)
}

func TestRedis_KeysArePrefixedJSON(t *testing.T) {
	r, mr := setupTestRedis(t)

	require.NoError(t, r.Set(context.Background(), SlotAdminAuth, true))

	raw, err := mr.Get("digimarket:" + SlotAdminAuth)
	require.NoError(t, err)
	assert.Equal(t, "true", raw)
	assert.Zero(t, mr.TTL("digimarket:"+SlotAdminAuth))
}

func TestRedis_DecodeError(t *testing.T) {
	r, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("digimarket:"+SlotSnapshot, "{not json"))

	var v map[string]any
	err := r.Get(context.Background(), SlotSnapshot, &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedis_ConnectionError(t *testing.T) {
	r, mr := setupTestRedis(t)
	mr.Close()

	var v bool
	err := r.Get(context.Background(), SlotAdminAuth, &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, r.Ping(context.Background()))
}

func TestMemory_StoresCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	in := []string{"a"}
	require.NoError(t, m.Set(ctx, SlotSnapshot, in))
	in[0] = "b"

	var out []string
	require.NoError(t, m.Get(ctx, SlotSnapshot, &out))
	assert.Equal(t, []string{"a"}, out)
}
