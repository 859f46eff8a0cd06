package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard shows order status counts, the mailbox count and the user name
// GET /
func (p *Portal) Dashboard(c *gin.Context) {
	sess := mustSession(c)
	c.JSON(http.StatusOK, p.dashboard.Load(c.Request.Context(), sess.API))
}
