package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection under the user's email and blocks until
// it closes.
func ServeWs(hub *Hub, c *websocket.Conn, email string, handle TurnHandler) {
	client := newClient(hub, c, email, handle)
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
