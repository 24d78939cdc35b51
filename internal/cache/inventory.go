package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	ContributorsKeyPrefix = "contributors:%s"
	LeaderboardKeyPrefix  = "leaderboard:%d"
)

const (
	ContributorsTTL = 30 * time.Second
	LeaderboardTTL  = 30 * time.Second
)

// ContributorsKey derives a stable key from the normalized directory query.
func ContributorsKey(sortBy string, year int, skills []string, limit int) string {
	raw := fmt.Sprintf("%s|%d|%s|%d", sortBy, year, strings.Join(skills, ","), limit)
	sum := sha1.Sum([]byte(raw))
	return fmt.Sprintf(ContributorsKeyPrefix, hex.EncodeToString(sum[:8]))
}

func LeaderboardKey(limit int) string {
	return fmt.Sprintf(LeaderboardKeyPrefix, limit)
}

func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateRankings drops every cached contributors and leaderboard page.
// Called after ledger writes so reputation changes show up immediately.
func InvalidateRankings(ctx context.Context) {
	if client == nil {
		return
	}
	for _, pattern := range []string{"contributors:*", "leaderboard:*"} {
		iter := client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
}
