package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"orderportal/server/internal/models"
	"orderportal/server/internal/services"
)

// Activity returns the newest submit/send attempts of the signed-in user.
// ?all=true drops the user filter.
// GET /activity?limit=50
func (p *Portal) Activity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	username := ""
	if c.Query("all") != "true" {
		if user, ok := c.Get(ctxUserKey); ok {
			username = user.(models.User).Username
		}
	}

	entries, err := p.activity.Recent(c.Request.Context(), username, limit)
	if err != nil {
		p.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled":  p.activity.Enabled(),
		"activity": entries,
	})
}

// FieldVisibility computes which account fields of the supplier invoice
// form are shown, enabled or cleared for the given terms.
// POST /admin/supplier-invoices/field-visibility
func (p *Portal) FieldVisibility(c *gin.Context) {
	var form services.SupplierInvoiceForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, services.ComputeFieldVisibility(form))
}
