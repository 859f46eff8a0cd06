package backend

import (
	"context"
	"fmt"
	"net/url"

	"orderportal/server/internal/mappers"
	"orderportal/server/internal/models"
)

// API exposes the backend endpoints the portal uses, already mapped to view models
type API struct {
	client *Client
}

func NewAPI(client *Client) *API {
	return &API{client: client}
}

// Client returns the underlying session client
func (a *API) Client() *Client {
	return a.client
}

func (a *API) Suppliers(ctx context.Context) ([]models.Supplier, error) {
	var dto []models.SupplierDTO
	if err := a.client.GetJSON(ctx, "/api/suppliers/", &dto); err != nil {
		return nil, err
	}
	return mappers.MapSuppliers(dto), nil
}

func (a *API) Catalog(ctx context.Context, supplierID int64) ([]models.CatalogItem, error) {
	var dto models.CatalogResponseDTO
	if err := a.client.GetJSON(ctx, fmt.Sprintf("/api/suppliers/%d/artikli/", supplierID), &dto); err != nil {
		return nil, err
	}
	return mappers.MapCatalog(dto), nil
}

func (a *API) PaymentTypes(ctx context.Context) ([]models.PaymentType, error) {
	var dto []models.PaymentTypeDTO
	if err := a.client.GetJSON(ctx, "/api/payment-types/", &dto); err != nil {
		return nil, err
	}
	return mappers.MapPaymentTypes(dto), nil
}

// PurchaseOrders lists orders; query carries status, supplier, ordered_from,
// ordered_to and page_size.
func (a *API) PurchaseOrders(ctx context.Context, query url.Values) (models.PurchaseOrderList, error) {
	var dto models.PurchaseOrderListDTO
	if err := a.client.GetJSON(ctx, PathWithQuery("/api/purchase-orders/", query), &dto); err != nil {
		return models.PurchaseOrderList{}, err
	}
	return mappers.MapPurchaseOrderList(dto), nil
}

func (a *API) PurchaseOrder(ctx context.Context, id int64) (models.PurchaseOrder, error) {
	var dto models.PurchaseOrderDTO
	if err := a.client.GetJSON(ctx, fmt.Sprintf("/api/purchase-orders/%d/", id), &dto); err != nil {
		return models.PurchaseOrder{}, err
	}
	return mappers.MapPurchaseOrder(dto), nil
}

func (a *API) CreatePurchaseOrder(ctx context.Context, req models.CreatePurchaseOrderRequest) (int64, error) {
	var resp models.CreatePurchaseOrderResponse
	if err := a.client.PostJSON(ctx, "/api/purchase-orders/", req, &resp, WithCSRF()); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (a *API) SendPurchaseOrder(ctx context.Context, id int64) error {
	return a.client.PostJSON(ctx, fmt.Sprintf("/api/purchase-orders/%d/send/", id), nil, nil, WithCSRF())
}

// MailMessages lists mailbox messages; query carries q, date_from, date_to and page_size
func (a *API) MailMessages(ctx context.Context, query url.Values) (models.MailMessageList, error) {
	var dto models.MailMessageListDTO
	if err := a.client.GetJSON(ctx, PathWithQuery("/api/mailbox/messages/", query), &dto); err != nil {
		return models.MailMessageList{}, err
	}
	return mappers.MapMailList(dto), nil
}

func (a *API) MailMessage(ctx context.Context, id int64) (models.MailMessage, error) {
	var dto models.MailMessageDTO
	if err := a.client.GetJSON(ctx, fmt.Sprintf("/api/mailbox/messages/%d/", id), &dto); err != nil {
		return models.MailMessage{}, err
	}
	return mappers.MapMailMessage(dto), nil
}

func (a *API) Me(ctx context.Context) (models.User, error) {
	var dto models.UserDTO
	if err := a.client.GetJSON(ctx, "/api/me/", &dto); err != nil {
		return models.User{}, err
	}
	return mappers.MapUser(dto), nil
}

func (a *API) Login(ctx context.Context, req models.LoginRequest) (models.User, error) {
	var dto models.UserDTO
	if err := a.client.PostJSON(ctx, "/api/login/", req, &dto, WithCSRF()); err != nil {
		return models.User{}, err
	}
	return mappers.MapUser(dto), nil
}

func (a *API) Logout(ctx context.Context) error {
	return a.client.PostJSON(ctx, "/api/logout/", nil, nil, WithCSRF())
}
