//go:build integration

package redis_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/marcelsud/webhook-analyzer/webhook/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

/* Test Helpers for Redis Integration Tests
 * Following the pattern from: https://eltonminetto.dev/post/2024-02-15-using-test-helpers/
 */

// RedisContainer holds the Redis testcontainer and connection details
type RedisContainer struct {
	Container *testcontainersredis.RedisContainer
	Addr      string
}

// SetupRedisContainer creates and starts a Redis testcontainer
func SetupRedisContainer(t *testing.T, ctx context.Context) (*RedisContainer, func()) {
	t.Helper()

	redisContainer, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")

	addr, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "failed to get Redis connection string")

	rc := &RedisContainer{
		Container: redisContainer,
		Addr:      strings.TrimPrefix(addr, "redis://"),
	}

	cleanup := func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}

	return rc, cleanup
}

// CreateTestRepository creates a Redis repository connected to the test container
func CreateTestRepository(t *testing.T, addr string) *redis.Repository {
	t.Helper()

	repo, err := redis.NewRepository(addr, "", 0)
	require.NoError(t, err, "failed to create Redis repository")

	return repo
}

// FlushAll empties the container between subtests
func FlushAll(t *testing.T, addr string) {
	t.Helper()

	client := createRedisClient(addr)
	defer client.Close()

	require.NoError(t, client.FlushAll(context.Background()).Err())
}

// KeyExists checks if a Redis key exists
func KeyExists(t *testing.T, addr string, key string) bool {
	t.Helper()

	client := createRedisClient(addr)
	defer client.Close()

	exists, err := client.Exists(context.Background(), key).Result()
	require.NoError(t, err)

	return exists > 0
}

// SetMembers returns the members of a Redis set
func SetMembers(t *testing.T, addr string, key string) []string {
	t.Helper()

	client := createRedisClient(addr)
	defer client.Close()

	members, err := client.SMembers(context.Background(), key).Result()
	require.NoError(t, err)

	return members
}

func newEvent(source string, ts time.Time) webhook.Event {
	return webhook.Event{
		Source:        source,
		ClientIP:      "203.0.113.7",
		Timestamp:     ts,
		RawPayload:    []byte(`{"action":"created","id":12345678901234567}`),
		Headers:       map[string]string{"Content-Type": "application/json"},
		ParsedData:    map[string]any{"action": "created"},
		Importance:    webhook.UnknownImportance,
		ForwardStatus: webhook.ForwardPending,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

func createRedisClient(addr string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr: addr,
	})
}
