package backend

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
)

type pageKey struct{}

type page struct {
	path     string
	rawQuery string
}

// WithPage records the portal page a backend call is made for.
// The auth interceptor uses it to build the login return path.
func WithPage(ctx context.Context, path, rawQuery string) context.Context {
	return context.WithValue(ctx, pageKey{}, page{path: path, rawQuery: rawQuery})
}

// PageFrom returns the page stored by WithPage
func PageFrom(ctx context.Context) (path, rawQuery string, ok bool) {
	p, ok := ctx.Value(pageKey{}).(page)
	return p.path, p.rawQuery, ok
}

// AuthPolicy decides where unauthenticated users are sent and which pages
// never trigger that redirect.
type AuthPolicy struct {
	LoginPath   string
	PublicPaths []string
}

// Exempt reports whether path is public. The login page is always public.
func (p AuthPolicy) Exempt(path string) bool {
	for _, public := range append([]string{p.loginPath()}, p.PublicPaths...) {
		public = strings.TrimRight(public, "/")
		if public == "" {
			continue
		}
		if path == public || strings.HasPrefix(path, public+"/") {
			return true
		}
	}
	return false
}

// LoginURL builds /login?next=<path?query>
func (p AuthPolicy) LoginURL(path, rawQuery string) string {
	next := path
	if rawQuery != "" {
		next += "?" + rawQuery
	}
	if next == "" {
		return p.loginPath()
	}
	return p.loginPath() + "?next=" + url.QueryEscape(next)
}

func (p AuthPolicy) loginPath() string {
	if p.LoginPath == "" {
		return "/login"
	}
	return p.LoginPath
}

// ResponseInterceptor observes every backend response. apiErr is nil for 2xx.
// Interceptors may annotate apiErr but cannot swallow it.
type ResponseInterceptor func(ctx context.Context, resp *http.Response, apiErr *APIError)

// AuthRedirect marks 401/403 errors with the login URL unless the page the
// call was made for is public.
func AuthRedirect(policy AuthPolicy) ResponseInterceptor {
	return func(ctx context.Context, resp *http.Response, apiErr *APIError) {
		if apiErr == nil || !apiErr.IsAuth() {
			return
		}
		path, rawQuery, ok := PageFrom(ctx)
		if !ok || policy.Exempt(path) {
			return
		}
		apiErr.Redirect = policy.LoginURL(path, rawQuery)
		log.Printf("🔒 backend returned %d for %s, redirecting to %s", apiErr.Status, resp.Request.URL.Path, apiErr.Redirect)
	}
}
