package services

import (
	"context"
	"log"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"orderportal/server/internal/format"
	"orderportal/server/internal/models"
)

// DashboardSource is what the landing page reads from the backend
type DashboardSource interface {
	PurchaseOrders(ctx context.Context, query url.Values) (models.PurchaseOrderList, error)
	MailMessages(ctx context.Context, query url.Values) (models.MailMessageList, error)
	Me(ctx context.Context) (models.User, error)
}

var dashboardStatuses = []struct {
	status models.OrderStatus
	label  string
}{
	{models.OrderStatusCreated, "KREIRANA"},
	{models.OrderStatusSent, "POSLANA"},
	{models.OrderStatusConfirmed, "POTVRĐENA"},
}

type StatusCard struct {
	Status     models.OrderStatus `json:"status"`
	Label      string             `json:"label"`
	Count      string             `json:"count"`
	TotalGross string             `json:"totalGross"`
}

type Dashboard struct {
	UserName  *string                      `json:"userName"`
	Summary   *models.PurchaseOrderSummary `json:"summary"`
	Cards     []StatusCard                 `json:"cards"`
	MailCount *int64                       `json:"mailCount"`
	MailLabel string                       `json:"mailLabel"`
}

type DashboardService struct{}

func NewDashboardService() *DashboardService {
	return &DashboardService{}
}

// Load fetches the three dashboard sources concurrently. A failing source
// only blanks its own part of the page.
func (s *DashboardService) Load(ctx context.Context, api DashboardSource) Dashboard {
	var (
		summary   *models.PurchaseOrderSummary
		mailCount *int64
		userName  *string
	)

	// every source logs and swallows its own error, so no source cancels the others
	var g errgroup.Group
	g.Go(func() error {
		list, err := api.PurchaseOrders(ctx, url.Values{"page_size": {"1"}})
		if err != nil {
			log.Printf("⚠️ dashboard summary: %v", err)
			return nil
		}
		summary = &list.Summary
		return nil
	})
	g.Go(func() error {
		list, err := api.MailMessages(ctx, url.Values{"page_size": {"1"}})
		if err != nil {
			log.Printf("⚠️ dashboard mail count: %v", err)
			return nil
		}
		mailCount = &list.Count
		return nil
	})
	g.Go(func() error {
		user, err := api.Me(ctx)
		if err != nil {
			log.Printf("⚠️ dashboard user: %v", err)
			return nil
		}
		name := user.DisplayName()
		if name != "" {
			userName = &name
		}
		return nil
	})
	_ = g.Wait()

	d := Dashboard{UserName: userName, Summary: summary, MailCount: mailCount, MailLabel: format.Placeholder}
	if mailCount != nil {
		d.MailLabel = strconv.FormatInt(*mailCount, 10)
	}
	for _, st := range dashboardStatuses {
		card := StatusCard{Status: st.status, Label: st.label, Count: format.Placeholder, TotalGross: format.Placeholder}
		if summary != nil {
			sc := summary.StatusCounts[string(st.status)]
			card.Count = strconv.FormatInt(sc.Count, 10)
			card.TotalGross = format.FormatEuro(sc.TotalGross)
		}
		d.Cards = append(d.Cards, card)
	}
	return d
}
