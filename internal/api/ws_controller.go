package api

import (
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     sameOrigin,
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// sameOrigin accepts pages served by this portal and non-browser clients
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// ServeWS keeps a portal page subscribed to order-list invalidations
// GET /ws
func (p *Portal) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ websocket upgrade: %v", err)
		return
	}

	p.hub.AddClient(conn)
	log.Printf("📱 Portal page connected. Clients: %d", p.hub.GetClientsCount())

	defer func() {
		p.hub.RemoveClient(conn)
		log.Printf("📱 Portal page disconnected. Clients: %d", p.hub.GetClientsCount())
	}()

	// pages never send; reading only detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ websocket: %v", err)
			}
			break
		}
	}
}
