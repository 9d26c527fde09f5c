package cache

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesceFollowerSharesResult(t *testing.T) {
	c := NewCoalescer(0)

	flight, leader, ok := c.Start("k")
	require.True(t, ok)
	require.True(t, leader)

	followerFlight, followerLeader, ok := c.Start("k")
	require.True(t, ok)
	assert.False(t, followerLeader)
	assert.Same(t, flight, followerFlight)

	go c.Finish("k", flight, json.RawMessage(`{"v":1}`), nil)

	value, err, joined := c.Wait(followerFlight, time.Second)
	require.True(t, joined)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(value))
}

func TestCoalesceSharesError(t *testing.T) {
	c := NewCoalescer(0)
	flight, _, _ := c.Start("k")
	boom := errors.New("boom")
	go c.Finish("k", flight, nil, boom)

	_, err, joined := c.Wait(flight, time.Second)
	require.True(t, joined)
	assert.Equal(t, boom, err)
}

func TestCoalesceBreakawayOnTimeout(t *testing.T) {
	c := NewCoalescer(0)
	flight, _, _ := c.Start("k")

	_, _, joined := c.Wait(flight, 20*time.Millisecond)
	assert.False(t, joined)
}

func TestCoalesceFinishReleasesKey(t *testing.T) {
	c := NewCoalescer(0)
	flight, _, _ := c.Start("k")
	c.Finish("k", flight, nil, nil)

	_, leader, ok := c.Start("k")
	require.True(t, ok)
	assert.True(t, leader)
}

func TestCoalesceBoundedFlights(t *testing.T) {
	c := NewCoalescer(1)
	_, _, ok := c.Start("a")
	require.True(t, ok)

	_, _, ok = c.Start("b")
	assert.False(t, ok)
}

func TestCoalesceEmptyKey(t *testing.T) {
	c := NewCoalescer(0)
	_, _, ok := c.Start("")
	assert.False(t, ok)
}
