package clickhouse

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	cfg := &ClientConfig{
		Host:         "ch.local",
		Port:         9000,
		Database:     "orb",
		User:         "default",
		Password:     "p@ss",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  30 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	}

	u, err := url.Parse(buildDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.local:9000", u.Host)
	assert.Equal(t, "/orb", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)

	q := u.Query()
	assert.Equal(t, "5s", q.Get("dial_timeout"))
	assert.Equal(t, "30", q.Get("max_execution_time"))
	assert.Equal(t, "1", q.Get("async_insert"))
	assert.Equal(t, "1", q.Get("wait_for_async_insert"))
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := buildDSN(&ClientConfig{Host: "ch", Port: 8123, Database: "orb", UseHTTP: true})
	assert.True(t, strings.HasPrefix(dsn, "http://"))
}

func TestSchema(t *testing.T) {
	stmts := Schema("orb")
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[1], "orb.bars_1m")
	assert.Contains(t, stmts[2], "orb.orb_outcomes")
	assert.Contains(t, stmts[2], "ORDER BY (trade_date, strategy_id, track)")
}
