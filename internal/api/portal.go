package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"orderportal/server/internal/backend"
	"orderportal/server/internal/config"
	"orderportal/server/internal/services"
	"orderportal/server/internal/session"
)

// Portal wires the portal routes to the per-session views and the shared
// services.
type Portal struct {
	cfg    *config.Config
	policy backend.AuthPolicy
	store  *session.Store
	signer *session.Signer

	auth      *services.AuthService
	dashboard *services.DashboardService
	detail    *services.OrderDetailView
	export    *services.ExportService
	refs      *services.ReferenceCache
	activity  *services.ActivityService
	hub       *Hub
}

type PortalDeps struct {
	Config    *config.Config
	Policy    backend.AuthPolicy
	Store     *session.Store
	Signer    *session.Signer
	Auth      *services.AuthService
	Dashboard *services.DashboardService
	Detail    *services.OrderDetailView
	Export    *services.ExportService
	Refs      *services.ReferenceCache
	Activity  *services.ActivityService
	Hub       *Hub
}

func NewPortal(deps PortalDeps) *Portal {
	if deps.Dashboard == nil {
		deps.Dashboard = services.NewDashboardService()
	}
	if deps.Detail == nil {
		deps.Detail = services.NewOrderDetailView(nil, nil)
	}
	if deps.Export == nil {
		deps.Export = services.NewExportService(time.Local)
	}
	if deps.Hub == nil {
		deps.Hub = NewHub()
	}
	return &Portal{
		cfg:       deps.Config,
		policy:    deps.Policy,
		store:     deps.Store,
		signer:    deps.Signer,
		auth:      deps.Auth,
		dashboard: deps.Dashboard,
		detail:    deps.Detail,
		export:    deps.Export,
		refs:      deps.Refs,
		activity:  deps.Activity,
		hub:       deps.Hub,
	}
}

// Register mounts every portal route on r
func (p *Portal) Register(r *gin.Engine) {
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "Order Portal",
			"sessions": p.store.Len(),
			"clients":  p.hub.GetClientsCount(),
		})
	})

	r.Use(p.LoadSession())

	r.GET("/login", p.LoginPage)
	r.POST("/login", p.Login)
	r.POST("/logout", p.Logout)
	r.GET("/download", p.DownloadPage)

	gated := r.Group("/")
	gated.Use(p.AuthGate())
	{
		gated.GET("/", p.Dashboard)

		gated.GET("/purchase-orders", p.ListPurchaseOrders)
		gated.POST("/purchase-orders/refresh", p.RefreshPurchaseOrders)
		gated.GET("/purchase-orders/export.xlsx", p.ExportPurchaseOrders)

		gated.GET("/purchase-orders/new", p.OrderForm)
		gated.POST("/purchase-orders/new/supplier", p.SelectSupplier)
		gated.POST("/purchase-orders/new/payment-type", p.SelectPaymentType)
		gated.PUT("/purchase-orders/new/quantities/:key", p.SetPendingQuantity)
		gated.POST("/purchase-orders/new/lines", p.AddLine)
		gated.DELETE("/purchase-orders/new/lines/:key", p.RemoveLine)
		gated.POST("/purchase-orders/new/submit", p.SubmitOrder)
		gated.POST("/purchase-orders/new/send", p.SendNewOrder)
		gated.POST("/purchase-orders/new/reset", p.ResetOrder)

		gated.GET("/purchase-orders/:id", p.PurchaseOrderDetail)
		gated.POST("/purchase-orders/:id/send", p.SendPurchaseOrder)

		gated.GET("/mailbox", p.Mailbox)
		gated.GET("/mailbox/messages/:id", p.MailMessage)

		gated.GET("/activity", p.Activity)
		gated.POST("/admin/supplier-invoices/field-visibility", p.FieldVisibility)

		gated.GET("/ws", p.ServeWS)
	}
}

// mustSession is only used behind AuthGate, which guarantees a session
func mustSession(c *gin.Context) *session.Session {
	return currentSession(c)
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Neispravan identifikator",
			"details": c.Param(name),
		})
		return 0, false
	}
	return id, true
}

// respondError maps workflow and backend failures onto portal responses
func (p *Portal) respondError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrBusy) || errors.Is(err, services.ErrCannotSend) || errors.Is(err, services.ErrNotSubmitted) {
		msg, _ := services.ValidationMessage(err)
		c.JSON(http.StatusConflict, gin.H{"error": msg, "details": err.Error()})
		return
	}
	if msg, ok := services.ValidationMessage(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "details": err.Error()})
		return
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if target, ok := authRedirect(err); ok {
			p.redirectToLogin(c, target)
			return
		}
		status := apiErr.Status
		if status >= 500 || status < 400 {
			status = http.StatusBadGateway
		}
		body := gin.H{"error": apiErr.Message}
		if fields := apiErr.FieldErrors(); len(fields) > 0 {
			body["details"] = fields
		}
		c.JSON(status, body)
		return
	}

	var transportErr *backend.TransportError
	if errors.As(err, &transportErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": backend.TransportMessage})
		return
	}

	log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Interna greška",
		"details": err.Error(),
	})
}

// authRedirect extracts the login target the backend client attached to a
// rejected call
func authRedirect(err error) (string, bool) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Redirect != "" {
		return apiErr.Redirect, true
	}
	return "", false
}
