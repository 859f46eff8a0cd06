package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderportal/server/internal/services"
)

// Mailbox lists received supplier mails and the selected message
// GET /mailbox?q=&date_from=&date_to=
func (p *Portal) Mailbox(c *gin.Context) {
	sess := mustSession(c)
	filter, err := services.ParseMailFilter(c.Request.URL.Query())
	if err != nil {
		p.respondError(c, err)
		return
	}

	snap, err := sess.Mailbox.Load(c.Request.Context(), sess.API, filter)
	if err != nil {
		if p.handledAuth(c, err) {
			return
		}
		log.Printf("⚠️ mailbox for session %s: %v", sess.ID, err)
	}
	c.JSON(http.StatusOK, gin.H{"mailbox": snap})
}

// MailMessage opens one message and makes it the selection
// GET /mailbox/messages/:id
func (p *Portal) MailMessage(c *gin.Context) {
	sess := mustSession(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	msg, err := sess.Mailbox.Message(c.Request.Context(), sess.API, id)
	if err != nil {
		p.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
