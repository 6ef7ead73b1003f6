package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection and blocks until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, taskID string) {
	if taskID == "" {
		taskID = allTasks
	}
	client := &Client{Hub: hub, Conn: c, TaskID: taskID, Send: make(chan []byte, 256)}
	if !hub.add(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
