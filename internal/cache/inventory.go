package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stackit/internal/middleware"
)

const (
	UserKeyPrefix        = "user:%d"
	PopularTagsKeyPrefix = "tags:popular:%d"
	popularTagsPattern   = "tags:popular:*"
	WSTicketKeyPrefix    = "ws_ticket:%s"
)

const (
	UserTTL        = 5 * time.Minute
	PopularTagsTTL = 2 * time.Minute
	WSTicketTTL    = 30 * time.Second
)

// Cache names used in metrics labels.
const (
	CacheUsers       = "users"
	CachePopularTags = "popular_tags"
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PopularTagsKey(limit int) string {
	return fmt.Sprintf(PopularTagsKeyPrefix, limit)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

// Invalidate deletes key, logging rather than failing when Redis errors.
func Invalidate(ctx context.Context, key string) {
	if client == nil {
		return
	}
	if err := client.Del(ctx, key).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidatePopularTags drops every cached popular-tag page.
func InvalidatePopularTags(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, popularTagsPattern, 100).Iterator()
	for iter.Next(ctx) {
		Invalidate(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "popular tag invalidation failed", slog.String("error", err.Error()))
	}
}
