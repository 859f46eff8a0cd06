package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"orderportal/server/internal/models"
)

const mailLoadFailed = "Ne mogu ucitati mailove."

type MailReader interface {
	MailMessages(ctx context.Context, query url.Values) (models.MailMessageList, error)
	MailMessage(ctx context.Context, id int64) (models.MailMessage, error)
}

type MailFilter struct {
	Query    string `json:"q"`
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
}

func ParseMailFilter(values url.Values) (MailFilter, error) {
	f := MailFilter{
		Query:    strings.TrimSpace(values.Get("q")),
		DateFrom: strings.TrimSpace(values.Get("date_from")),
		DateTo:   strings.TrimSpace(values.Get("date_to")),
	}
	for _, d := range []string{f.DateFrom, f.DateTo} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return MailFilter{}, fmt.Errorf("%w: date %q", ErrInvalidFilter, d)
		}
	}
	return f, nil
}

func (f MailFilter) values(pageSize int) url.Values {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	if f.DateFrom != "" {
		q.Set("date_from", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("date_to", f.DateTo)
	}
	return q
}

type MailboxSnapshot struct {
	Filter     MailFilter           `json:"filter"`
	Count      int64                `json:"count"`
	Messages   []models.MailMessage `json:"messages"`
	SelectedID int64                `json:"selectedId"`
	Selected   *models.MailMessage  `json:"selected"`
	Error      string               `json:"error,omitempty"`
}

// MailboxView keeps the selected message of a session. The first message of
// a list becomes selected when nothing is selected yet.
type MailboxView struct {
	pageSize int

	mu         sync.Mutex
	generation uint64
	selectedID int64
}

func NewMailboxView(pageSize int) *MailboxView {
	if pageSize < 1 {
		pageSize = 20
	}
	return &MailboxView{pageSize: pageSize}
}

// Select changes the selected message; 0 clears the selection
func (v *MailboxView) Select(id int64) {
	v.mu.Lock()
	v.selectedID = id
	v.mu.Unlock()
}

func (v *MailboxView) Load(ctx context.Context, api MailReader, filter MailFilter) (MailboxSnapshot, error) {
	v.mu.Lock()
	v.generation++
	gen := v.generation
	v.mu.Unlock()

	snap := MailboxSnapshot{Filter: filter, Messages: []models.MailMessage{}}
	list, err := api.MailMessages(ctx, filter.values(v.pageSize))
	if err != nil {
		snap.Error = mailLoadFailed
		snap.SelectedID = v.selected()
		return snap, fmt.Errorf("failed to load mail messages: %w", err)
	}
	snap.Count = list.Count
	if list.Results != nil {
		snap.Messages = list.Results
	}

	v.mu.Lock()
	if gen == v.generation && v.selectedID == 0 && len(snap.Messages) > 0 {
		v.selectedID = snap.Messages[0].ID
	}
	selectedID := v.selectedID
	v.mu.Unlock()
	snap.SelectedID = selectedID

	if selectedID == 0 {
		return snap, nil
	}
	msg, err := api.MailMessage(ctx, selectedID)
	if err != nil {
		log.Printf("⚠️ mail message %d: %v", selectedID, err)
		return snap, nil
	}
	snap.Selected = &msg
	return snap, nil
}

// Message loads one message and makes it the selection
func (v *MailboxView) Message(ctx context.Context, api MailReader, id int64) (models.MailMessage, error) {
	msg, err := api.MailMessage(ctx, id)
	if err != nil {
		return models.MailMessage{}, fmt.Errorf("failed to load mail message %d: %w", id, err)
	}
	v.Select(id)
	return msg, nil
}

func (v *MailboxView) selected() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selectedID
}
