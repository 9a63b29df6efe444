package redis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/nordicstoday/nordics-today/infrastructure/redis"
)

func TestNewClient_EmptyAddress(t *testing.T) {
	c, err := redis.NewClient(context.Background(), redis.Config{})
	if !errors.Is(err, redis.ErrEmptyAddress) {
		t.Errorf("err = %v, want ErrEmptyAddress", err)
	}
	if c != nil {
		t.Error("expected nil client")
	}
}

func TestNewClient_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := redis.NewClient(context.Background(), redis.Config{Address: mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	if err := c.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Errorf("miniredis value = %q", got)
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := redis.NewClient(context.Background(), redis.Config{Address: addr}); err == nil {
		t.Error("expected ping failure")
	}
}
