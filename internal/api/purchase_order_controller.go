package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"orderportal/server/internal/models"
	"orderportal/server/internal/services"
)

const (
	listLoadFailed = "Neuspjesno ucitavanje podataka."
	exportPageSize = 200
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type statusOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func statusOptions() []statusOption {
	out := []statusOption{{Value: "", Label: "Svi statusi"}}
	for _, s := range models.OrderStatuses() {
		out = append(out, statusOption{Value: string(s), Label: s.Label()})
	}
	return out
}

// ListPurchaseOrders returns the filtered order list with the server summary
// GET /purchase-orders?status=&supplier=&ordered_from=&ordered_to=
func (p *Portal) ListPurchaseOrders(c *gin.Context) {
	sess := mustSession(c)
	filter, err := services.ParseListFilter(c.Request.URL.Query(), p.cfg.OrderPageSize)
	if err != nil {
		p.respondError(c, err)
		return
	}
	if err := sess.Orders.SetFilter(filter); err != nil {
		p.respondError(c, err)
		return
	}

	snap, err := sess.Orders.Load(c.Request.Context(), sess.API)
	if err != nil {
		if p.handledAuth(c, err) {
			return
		}
		log.Printf("⚠️ order list for session %s: %v", sess.ID, err)
		snap.Error = listLoadFailed
	}
	c.JSON(http.StatusOK, gin.H{
		"list":          snap,
		"statusOptions": statusOptions(),
	})
}

// RefreshPurchaseOrders refetches the list without changing the filter
// POST /purchase-orders/refresh
func (p *Portal) RefreshPurchaseOrders(c *gin.Context) {
	sess := mustSession(c)
	snap, err := sess.Orders.Refresh(c.Request.Context(), sess.API)
	if err != nil {
		if p.handledAuth(c, err) {
			return
		}
		snap.Error = listLoadFailed
	}
	c.JSON(http.StatusOK, gin.H{"list": snap})
}

// ExportPurchaseOrders downloads the filtered list as xlsx
// GET /purchase-orders/export.xlsx
func (p *Portal) ExportPurchaseOrders(c *gin.Context) {
	sess := mustSession(c)
	filter, err := services.ParseListFilter(c.Request.URL.Query(), exportPageSize)
	if err != nil {
		p.respondError(c, err)
		return
	}
	list, err := sess.API.PurchaseOrders(c.Request.Context(), filter.Query())
	if err != nil {
		p.respondError(c, err)
		return
	}
	data, err := p.export.OrdersWorkbook(list)
	if err != nil {
		p.respondError(c, err)
		return
	}
	filename := fmt.Sprintf("narudzbe-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxMIME, data)
}

// PurchaseOrderDetail returns one order with its items grouped for the
// group navigator. ?group= is the previously active group; the client moves
// it with ?visible=1,2 (groups in view), ?offsets=0,300&scroll=450 (group
// tops and scroll position) or ?step=-1 / ?step=1.
// GET /purchase-orders/:id
func (p *Portal) PurchaseOrderDetail(c *gin.Context) {
	sess := mustSession(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	active, _ := strconv.Atoi(c.DefaultQuery("group", "0"))
	vp, err := parseViewport(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	detail, err := p.detail.Load(c.Request.Context(), sess.API, id, active)
	if err != nil {
		p.respondError(c, err)
		return
	}
	detail = p.detail.Navigate(detail, vp)
	c.JSON(http.StatusOK, gin.H{
		"detail":   detail,
		"activity": p.orderActivity(c, id),
	})
}

func parseViewport(c *gin.Context) (services.Viewport, error) {
	var vp services.Viewport
	var err error
	if vp.Visible, err = parseIntList(c.Query("visible")); err != nil {
		return vp, fmt.Errorf("visible: %w", err)
	}
	if vp.Offsets, err = parseIntList(c.Query("offsets")); err != nil {
		return vp, fmt.Errorf("offsets: %w", err)
	}
	if raw := c.Query("scroll"); raw != "" {
		top, err := strconv.Atoi(raw)
		if err != nil {
			return vp, fmt.Errorf("scroll: %w", err)
		}
		vp.ScrollTop = &top
	}
	if raw := c.Query("step"); raw != "" {
		if vp.Step, err = strconv.Atoi(raw); err != nil {
			return vp, fmt.Errorf("step: %w", err)
		}
	}
	return vp, nil
}

func parseIntList(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// SendPurchaseOrder e-mails a created order to its supplier
// POST /purchase-orders/:id/send
func (p *Portal) SendPurchaseOrder(c *gin.Context) {
	sess := mustSession(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	detail, err := p.detail.Send(c.Request.Context(), sess.API, id)
	if err != nil {
		if errors.Is(err, services.ErrCannotSend) {
			msg, _ := services.ValidationMessage(err)
			c.JSON(http.StatusConflict, gin.H{"error": msg, "detail": detail})
			return
		}
		p.respondError(c, err)
		return
	}
	sess.Orders.Invalidate()
	c.JSON(http.StatusOK, gin.H{"detail": detail})
}

func (p *Portal) orderActivity(c *gin.Context, orderID int64) []models.OrderActivity {
	if !p.activity.Enabled() {
		return nil
	}
	entries, err := p.activity.ForOrder(c.Request.Context(), orderID)
	if err != nil {
		log.Printf("⚠️ activity for order %d: %v", orderID, err)
		return nil
	}
	return entries
}

// handledAuth answers err when it is an auth redirect from the backend
func (p *Portal) handledAuth(c *gin.Context, err error) bool {
	target, ok := authRedirect(err)
	if !ok {
		return false
	}
	p.redirectToLogin(c, target)
	return true
}
