package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(c)
	t.Cleanup(func() {
		SetClient(nil)
		_ = c.Close()
	})
	return mr
}

type cachedUser struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestGetSetJSON(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	var out cachedUser
	found, err := GetJSON(ctx, UserKey(1), &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, UserKey(1), cachedUser{ID: 1, Name: "ada"}, UserTTL))
	found, err = GetJSON(ctx, UserKey(1), &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ada", out.Name)
	assert.Equal(t, UserTTL, mr.TTL("user:1"))
}

func TestAside_MissThenHit(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()
	var calls atomic.Int32

	fetch := func(context.Context) (cachedUser, error) {
		calls.Add(1)
		return cachedUser{ID: 2, Name: "grace"}, nil
	}

	first, err := Aside(ctx, CacheUsers, UserKey(2), UserTTL, fetch)
	require.NoError(t, err)
	second, err := Aside(ctx, CacheUsers, UserKey(2), UserTTL, fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupRedis(t)
	boom := errors.New("boom")

	_, err := Aside(context.Background(), CacheUsers, UserKey(3), UserTTL, func(context.Context) (cachedUser, error) {
		return cachedUser{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("user:3"))
}

func TestAside_CoalescesConcurrentMisses(t *testing.T) {
	setupRedis(t)
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"go", "sql"}, nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tags, err := Aside(context.Background(), CachePopularTags, PopularTagsKey(10), PopularTagsTTL, fetch)
			assert.NoError(t, err)
			assert.Len(t, tags, 2)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestAside_WithoutRedis(t *testing.T) {
	SetClient(nil)
	v, err := Aside(context.Background(), CacheUsers, UserKey(4), UserTTL, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestInvalidatePopularTags(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, PopularTagsKey(5), []string{"a"}, PopularTagsTTL))
	require.NoError(t, SetJSON(ctx, PopularTagsKey(10), []string{"a"}, PopularTagsTTL))
	require.NoError(t, SetJSON(ctx, UserKey(9), cachedUser{ID: 9}, UserTTL))

	InvalidatePopularTags(ctx)

	assert.False(t, mr.Exists(PopularTagsKey(5)))
	assert.False(t, mr.Exists(PopularTagsKey(10)))
	assert.True(t, mr.Exists(UserKey(9)))

	InvalidateUser(ctx, 9)
	assert.False(t, mr.Exists(UserKey(9)))
}
