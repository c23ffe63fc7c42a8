package backend

import (
	"context"
	"net/http"
)

type cookiesKey struct{}

// WithCookies attaches the shopper's cookies to ctx. Every backend call made
// with the returned context forwards them, which is how the backend
// recognises the shopper's session.
func WithCookies(ctx context.Context, cookies []*http.Cookie) context.Context {
	if len(cookies) == 0 {
		return ctx
	}
	return context.WithValue(ctx, cookiesKey{}, cookies)
}

func cookiesFromContext(ctx context.Context) []*http.Cookie {
	cookies, _ := ctx.Value(cookiesKey{}).([]*http.Cookie)
	return cookies
}
