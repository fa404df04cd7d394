// Package site serves the embedded recommender page.
package site

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register attaches the embedded page and its assets at the root of r.
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	files := http.FileServer(FS())
	r.Get("/", files.ServeHTTP)
	r.Get("/assets/*", files.ServeHTTP)
}
