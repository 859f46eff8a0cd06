package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderportal/server/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	factory, err := NewFactory(srv.URL, opts...)
	require.NoError(t, err)
	jar, err := NewJar()
	require.NoError(t, err)
	return factory.ForJar(jar), srv
}

func TestPostJSONPerformsCSRFHandshake(t *testing.T) {
	var gotHeader, gotContentType string
	var gotBody map[string]any
	csrfCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf/", func(w http.ResponseWriter, r *http.Request) {
		csrfCalls++
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-123", Path: "/"})
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "CSRF cookie set"})
	})
	mux.HandleFunc("/api/purchase-orders/", func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-CSRFToken")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]int{"id": 77})
	})
	client, _ := newTestClient(t, mux)

	var resp models.CreatePurchaseOrderResponse
	err := client.PostJSON(context.Background(), "/api/purchase-orders/", map[string]any{"supplier": 3}, &resp, WithCSRF())
	require.NoError(t, err)

	assert.Equal(t, 1, csrfCalls)
	assert.Equal(t, "tok-123", gotHeader)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, float64(3), gotBody["supplier"])
	assert.Equal(t, int64(77), resp.ID)
}

func TestPostJSONFailsWithoutCSRFCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	client, _ := newTestClient(t, mux)

	err := client.PostJSON(context.Background(), "/api/logout/", nil, nil, WithCSRF())
	assert.ErrorIs(t, err, ErrNoCSRFToken)
}

func TestAPIErrorMessages(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
		fields  map[string][]string
	}{
		{
			name:    "detail wins",
			status:  http.StatusBadRequest,
			body:    `{"detail": "Invalid credentials", "username": ["bad"]}`,
			message: "Invalid credentials",
			fields:  map[string][]string{"username": {"bad"}},
		},
		{
			name:    "field map flattened with sorted keys",
			status:  http.StatusBadRequest,
			body:    `{"supplier": ["This field is required."], "items": ["Empty.", "Too short."]}`,
			message: "items: Empty., Too short.; supplier: This field is required.",
			fields: map[string][]string{
				"supplier": {"This field is required."},
				"items":    {"Empty.", "Too short."},
			},
		},
		{
			name:    "non json body",
			status:  http.StatusInternalServerError,
			body:    `<html>boom</html>`,
			message: "Request failed: 500",
		},
		{
			name:    "empty body",
			status:  http.StatusNotFound,
			message: "Request failed: 404",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))

			err := client.GetJSON(context.Background(), "/api/anything/", nil)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.message, apiErr.Message)
			assert.Equal(t, tc.fields, apiErr.FieldErrors())
			assert.Equal(t, tc.message, UserMessage(err))
		})
	}
}

func TestTransportErrorIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	factory, err := NewFactory(srv.URL)
	require.NoError(t, err)
	srv.Close()

	jar, _ := NewJar()
	err = factory.ForJar(jar).GetJSON(context.Background(), "/api/me/", nil)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, TransportMessage, UserMessage(err))
}

func TestAuthRedirectInterceptor(t *testing.T) {
	policy := AuthPolicy{LoginPath: "/login", PublicPaths: []string{"/login", "/download"}}
	unauthorized := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "Authentication credentials were not provided."}`))
	})
	client, _ := newTestClient(t, unauthorized, WithInterceptors(AuthRedirect(policy)))

	t.Run("protected page is redirected with next", func(t *testing.T) {
		ctx := WithPage(context.Background(), "/purchase-orders", "status=sent")
		err := client.GetJSON(ctx, "/api/me/", nil)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr, "the caller still sees the failure")
		assert.Equal(t, "/login?next="+url.QueryEscape("/purchase-orders?status=sent"), apiErr.Redirect)
	})

	t.Run("public pages never redirect", func(t *testing.T) {
		for _, path := range []string{"/download", "/login", "/download/installer"} {
			err := client.GetJSON(WithPage(context.Background(), path, ""), "/api/me/", nil)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Empty(t, apiErr.Redirect, path)
		}
	})

	t.Run("calls without a page are left alone", func(t *testing.T) {
		err := client.GetJSON(context.Background(), "/api/me/", nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Empty(t, apiErr.Redirect)
	})
}

func TestAuthPolicy(t *testing.T) {
	policy := AuthPolicy{PublicPaths: []string{"/download/"}}

	assert.True(t, policy.Exempt("/login"))
	assert.True(t, policy.Exempt("/download"))
	assert.False(t, policy.Exempt("/downloads"))
	assert.False(t, policy.Exempt("/purchase-orders"))
	assert.Equal(t, "/login?next=%2Fpurchase-orders", policy.LoginURL("/purchase-orders", ""))
}

func TestAPIMapsResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/purchase-orders/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sent", r.URL.Query().Get("status"))
		assert.False(t, r.URL.Query().Has("supplier"), "empty filters are not sent")
		_, _ = w.Write([]byte(`{"summary": {"count": 1, "total_gross": 5, "status_counts": {}},
			"results": [{"id": 1, "supplier": 2, "status": "sent", "ordered_at": "2026-10-16", "total_gross": "5.00"}]}`))
	})
	client, _ := newTestClient(t, mux)
	api := NewAPI(client)

	list, err := api.PurchaseOrders(context.Background(), url.Values{"status": {"sent"}, "supplier": {""}})
	require.NoError(t, err)
	require.Len(t, list.Results, 1)
	assert.Equal(t, models.OrderStatusSent, list.Results[0].StatusCode)
	assert.Equal(t, int64(1), list.Summary.Count)
}

func TestNewFactoryRejectsRelativeURL(t *testing.T) {
	_, err := NewFactory("web:8000")
	assert.Error(t, err)

	_, err = NewFactory("/api")
	assert.True(t, err != nil && !errors.Is(err, ErrNoCSRFToken))
}
