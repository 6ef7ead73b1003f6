package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"claudebuddy-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestHub_NotifyRoutesByTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	watcher := &Client{Hub: hub, TaskID: allTasks, Send: make(chan []byte, 4)}
	one := &Client{Hub: hub, TaskID: "task-1", Send: make(chan []byte, 4)}
	require.True(t, hub.add(watcher))
	require.True(t, hub.add(one))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Notify(ctx, "task-2", map[string]interface{}{"task_id": "task-2"})
	assert.Equal(t, "task-2", receive(t, watcher)["task_id"])
	assert.Empty(t, one.Send)

	hub.Notify(ctx, "task-1", map[string]interface{}{"task_id": "task-1"})
	assert.Equal(t, "task-1", receive(t, watcher)["task_id"])
	assert.Equal(t, "task-1", receive(t, one)["task_id"])

	hub.drop(one)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	_, open := <-one.Send
	assert.False(t, open)
}

func TestHub_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, logger.NewNopLogger())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := &Client{Hub: hub, TaskID: allTasks, Send: make(chan []byte, 1)}
	require.True(t, hub.add(c))
	cancel()
	<-stopped

	_, open := <-c.Send
	assert.False(t, open)
	assert.False(t, hub.add(&Client{Hub: hub, TaskID: allTasks, Send: make(chan []byte, 1)}))
}
