package queue

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentBroker accepts TCP connections and never speaks AMQP.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishFailsFastOnUnresponsiveBroker(t *testing.T) {
	p := NewPublisher(silentBroker(t))
	p.dialTimeout = 100 * time.Millisecond

	start := time.Now()
	err := p.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial broker")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPublishDialHonoursContextDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	require.Error(t, p.Publish(ctx, sampleEvent()))
	assert.Less(t, time.Since(start), DefaultDialTimeout)
}

func TestNewPublisherDefaults(t *testing.T) {
	p := NewPublisher("")
	assert.Equal(t, DefaultURL, p.url)
	assert.Equal(t, LeaveEventsQueue, p.queue)
	assert.Equal(t, DefaultDialTimeout, p.dialTimeout)
}
