package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderportal/server/internal/models"
	"orderportal/server/internal/services"
	"orderportal/server/internal/session"
)

type selectSupplierRequest struct {
	SupplierID int64 `json:"supplierId"`
}

type selectPaymentTypeRequest struct {
	PaymentTypeID *int64 `json:"paymentTypeId"`
}

type quantityRequest struct {
	Quantity string `json:"quantity"`
}

type addLineRequest struct {
	Key string `json:"key" binding:"required"`
	// Quantity falls back to the pending input typed for the line
	Quantity *string `json:"quantity"`
}

// OrderForm returns the draft order with the supplier and payment type lists.
// ?refresh=1 drops the cached lists first.
// GET /purchase-orders/new
func (p *Portal) OrderForm(c *gin.Context) {
	sess := mustSession(c)
	ctx := c.Request.Context()
	if c.Query("refresh") == "1" {
		p.refs.Flush(ctx)
	}

	body := gin.H{
		"requirePaymentType": p.cfg.RequirePaymentType,
		"suppliers":          []models.Supplier{},
		"paymentTypes":       []models.PaymentType{},
	}
	suppliers, err := p.refs.Suppliers(ctx, sess.API)
	if err != nil {
		if p.handledAuth(c, err) {
			return
		}
		log.Printf("⚠️ suppliers: %v", err)
		body["suppliersError"] = listLoadFailed
	} else {
		body["suppliers"] = suppliers
	}
	paymentTypes, err := p.refs.PaymentTypes(ctx, sess.API)
	if err != nil {
		if p.handledAuth(c, err) {
			return
		}
		log.Printf("⚠️ payment types: %v", err)
		body["paymentTypesError"] = listLoadFailed
	} else {
		body["paymentTypes"] = paymentTypes
	}
	body["order"] = sess.Workflow.Snapshot()
	c.JSON(http.StatusOK, body)
}

// SelectSupplier empties the cart and loads the supplier catalog
// POST /purchase-orders/new/supplier
func (p *Portal) SelectSupplier(c *gin.Context) {
	var req selectSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SupplierID < 0 {
		badRequest(c, err)
		return
	}
	sess := mustSession(c)
	if err := sess.Workflow.SelectSupplier(c.Request.Context(), req.SupplierID); err != nil {
		// a failed catalog fetch still leaves a usable (empty) form
		if p.handledAuth(c, err) {
			return
		}
		if services.IsValidation(err) {
			p.respondError(c, err)
			return
		}
		log.Printf("⚠️ session %s: %v", sess.ID, err)
	}
	p.respondWorkflow(c, sess)
}

// SelectPaymentType sets or clears the payment type
// POST /purchase-orders/new/payment-type
func (p *Portal) SelectPaymentType(c *gin.Context) {
	var req selectPaymentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess := mustSession(c)
	if err := sess.Workflow.SetPaymentType(req.PaymentTypeID); err != nil {
		p.respondError(c, err)
		return
	}
	p.respondWorkflow(c, sess)
}

// SetPendingQuantity stores the quantity typed for a catalog row
// PUT /purchase-orders/new/quantities/:key
func (p *Portal) SetPendingQuantity(c *gin.Context) {
	key, err := models.ParseLineKey(c.Param("key"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess := mustSession(c)
	if err := sess.Workflow.SetPendingQuantity(key, req.Quantity); err != nil {
		p.respondError(c, err)
		return
	}
	p.respondWorkflow(c, sess)
}

// AddLine adds a catalog item to the cart or replaces its quantity
// POST /purchase-orders/new/lines
func (p *Portal) AddLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	key, err := models.ParseLineKey(req.Key)
	if err != nil {
		badRequest(c, err)
		return
	}
	sess := mustSession(c)

	item, ok := sess.Workflow.FindItem(key)
	if !ok {
		p.respondError(c, services.ErrUnknownItem)
		return
	}
	quantity := ""
	if req.Quantity != nil {
		quantity = *req.Quantity
	} else {
		quantity = sess.Workflow.Snapshot().PendingQuantities[key.String()]
	}
	if err := sess.Workflow.AddLine(item, quantity); err != nil {
		p.respondError(c, err)
		return
	}
	p.respondWorkflow(c, sess)
}

// RemoveLine drops a cart line
// DELETE /purchase-orders/new/lines/:key
func (p *Portal) RemoveLine(c *gin.Context) {
	key, err := models.ParseLineKey(c.Param("key"))
	if err != nil {
		badRequest(c, err)
		return
	}
	sess := mustSession(c)
	if err := sess.Workflow.RemoveLine(key); err != nil {
		p.respondError(c, err)
		return
	}
	p.respondWorkflow(c, sess)
}

// SubmitOrder creates the purchase order on the backend
// POST /purchase-orders/new/submit
func (p *Portal) SubmitOrder(c *gin.Context) {
	sess := mustSession(c)
	id, err := sess.Workflow.Submit(c.Request.Context())
	if err != nil {
		if p.handledAuth(c, err) {
			return
		}
		if services.IsValidation(err) {
			p.respondError(c, err)
			return
		}
		// backend rejections are rendered from the snapshot (error and field errors)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"order": sess.Workflow.Snapshot()})
		return
	}
	sess.Orders.Invalidate()
	c.JSON(http.StatusCreated, gin.H{"id": id, "order": sess.Workflow.Snapshot()})
}

// SendNewOrder e-mails the order that was just submitted
// POST /purchase-orders/new/send
func (p *Portal) SendNewOrder(c *gin.Context) {
	sess := mustSession(c)
	if err := sess.Workflow.Send(c.Request.Context()); err != nil {
		if p.handledAuth(c, err) {
			return
		}
		if services.IsValidation(err) {
			p.respondError(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"order": sess.Workflow.Snapshot()})
		return
	}
	sess.Orders.Invalidate()
	p.respondWorkflow(c, sess)
}

// ResetOrder discards the draft
// POST /purchase-orders/new/reset
func (p *Portal) ResetOrder(c *gin.Context) {
	sess := mustSession(c)
	sess.Workflow.Reset()
	p.respondWorkflow(c, sess)
}

func (p *Portal) respondWorkflow(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, gin.H{"order": sess.Workflow.Snapshot()})
}

func badRequest(c *gin.Context, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Neispravan zahtjev",
		"details": details,
	})
}
