package ratelimit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/shorturl/ratelimit"
	"github.com/ceyewan/shorturl/testkit"
)

func TestDistributed_Integration(t *testing.T) {
	kit := testkit.NewKit(t)
	conn := testkit.GetRedisConnector(t)

	cfg := &ratelimit.Config{Mode: ratelimit.ModeDistributed, Prefix: "test:ratelimit:" + testkit.NewID() + ":"}
	first, err := ratelimit.New(cfg, ratelimit.WithRedisConnector(conn), ratelimit.WithLogger(kit.Logger), ratelimit.WithMeter(kit.Meter))
	require.NoError(t, err)
	defer first.Close()
	second, err := ratelimit.New(cfg, ratelimit.WithRedisConnector(conn))
	require.NoError(t, err)
	defer second.Close()

	limit := ratelimit.Limit{Rate: 0.01, Burst: 3}

	// 两个实例共享同一个令牌桶
	allowed := 0
	for i := 0; i < 3; i++ {
		for _, l := range []ratelimit.Limiter{first, second} {
			ok, err := l.Allow(kit.Ctx, "client", limit)
			require.NoError(t, err)
			if ok {
				allowed++
			}
		}
	}
	assert.Equal(t, 3, allowed)

	_, err = first.Allow(kit.Ctx, "", limit)
	assert.ErrorIs(t, err, ratelimit.ErrKeyEmpty)
}
