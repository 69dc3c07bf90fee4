package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// AcquireDateLock serializes writers on a (service, date) pair via SETNX.
// Returns a release func. Interval bookings have no storage-level uniqueness
// backing them, so the lock closes the check-then-write race; when redis is
// unreachable the caller proceeds with the read-check alone.
func AcquireDateLock(ctx context.Context, service, dateISO string) (func(), bool) {
	rdb := GetRedisClient()
	noop := func() {}
	if rdb == nil {
		return noop, false
	}
	key := fmt.Sprintf("slotlock:%s:%s", service, dateISO)
	token := uuid.NewString()
	deadline := time.Now().Add(3 * time.Second)
	for {
		ok, err := rdb.SetNX(ctx, key, token, 5*time.Second).Result()
		if err != nil {
			log.Printf("[redis] Could not acquire lock %s: %s\n", key, err.Error())
			return noop, false
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			log.Printf("[redis] Timed out waiting for lock %s\n", key)
			return noop, false
		}
		time.Sleep(25 * time.Millisecond)
	}
	release := func() {
		val, err := rdb.Get(ctx, key).Result()
		if err == nil && val == token {
			rdb.Del(ctx, key)
		}
	}
	return release, true
}
