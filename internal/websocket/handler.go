package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a websocket connection as a watcher of a deck session.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string, debug bool) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Debug: debug, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
