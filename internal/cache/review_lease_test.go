package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// scriptedRedis replays canned SETNX and GET replies in order.
type scriptedRedis struct {
	setnx   []bool
	gets    []string
	setnxN  int
	getN    int
	expired []string
}

func (f *scriptedRedis) SetNX(_ context.Context, _ string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	ok := f.setnx[f.setnxN]
	f.setnxN++
	return redis.NewBoolResult(ok, nil)
}

func (f *scriptedRedis) Get(_ context.Context, _ string) *redis.StringCmd {
	v := f.gets[f.getN]
	f.getN++
	if v == "" {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *scriptedRedis) Expire(_ context.Context, key string, _ time.Duration) *redis.BoolCmd {
	f.expired = append(f.expired, key)
	return redis.NewBoolResult(true, nil)
}

func (f *scriptedRedis) Eval(context.Context, string, []string, ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(int64(0), nil)
}
func (f *scriptedRedis) EvalSha(context.Context, string, []string, ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(int64(0), nil)
}
func (f *scriptedRedis) EvalRO(context.Context, string, []string, ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(int64(0), nil)
}
func (f *scriptedRedis) EvalShaRO(context.Context, string, []string, ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(int64(0), nil)
}
func (f *scriptedRedis) ScriptExists(context.Context, ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}
func (f *scriptedRedis) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func TestClaim_RetriesWhenLeaseExpiresBetweenCalls(t *testing.T) {
	f := &scriptedRedis{setnx: []bool{false, true}, gets: []string{""}}
	s := &RedisLeaseStore{client: f}

	holder, ok, err := s.Claim(context.Background(), "outreach:1", "bob", time.Minute)
	if err != nil || !ok || holder != "bob" {
		t.Fatalf("claim = %q %v %v, want bob true", holder, ok, err)
	}
	if f.setnxN != 2 {
		t.Errorf("expected a second SETNX, got %d", f.setnxN)
	}
}

func TestClaim_ReportsOtherHolder(t *testing.T) {
	f := &scriptedRedis{setnx: []bool{false}, gets: []string{"alice"}}
	s := &RedisLeaseStore{client: f}

	holder, ok, err := s.Claim(context.Background(), "outreach:1", "bob", time.Minute)
	if err != nil || ok || holder != "alice" {
		t.Fatalf("claim = %q %v %v, want alice false", holder, ok, err)
	}
}

func TestClaim_ExtendsOwnLease(t *testing.T) {
	f := &scriptedRedis{setnx: []bool{false}, gets: []string{"bob"}}
	s := &RedisLeaseStore{client: f}

	if _, ok, err := s.Claim(context.Background(), "outreach:1", "bob", time.Minute); err != nil || !ok {
		t.Fatalf("claim: %v %v", ok, err)
	}
	if len(f.expired) != 1 || f.expired[0] != leasePrefix+"outreach:1" {
		t.Errorf("ttl not refreshed: %v", f.expired)
	}
}

func TestClaim_GivesUpWhenHolderKeepsChanging(t *testing.T) {
	f := &scriptedRedis{setnx: []bool{false, false, false}, gets: []string{"", "", ""}}
	s := &RedisLeaseStore{client: f}

	holder, ok, err := s.Claim(context.Background(), "outreach:1", "bob", time.Minute)
	if err == nil || ok || holder != "" {
		t.Fatalf("claim = %q %v %v, want an error", holder, ok, err)
	}
}
