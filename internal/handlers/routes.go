package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers all URL shortener routes.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-short-url",
		Method:        http.MethodPost,
		Path:          "/shorten",
		Summary:       "Create short URL",
		Description:   "Creates a new short code for the given URL. The same URL shortened twice gets two codes.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
	}, urlHandler.CreateShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "top-urls",
		Method:      http.MethodGet,
		Path:        "/top",
		Summary:     "Most visited short URLs",
		Tags:        []string{"Stats"},
	}, urlHandler.TopURLs)

	huma.Register(api, huma.Operation{
		OperationID: "url-stats",
		Method:      http.MethodGet,
		Path:        "/stats/{code}",
		Summary:     "Short URL statistics",
		Description: "Returns the stored record, including its click count, for a short code.",
		Tags:        []string{"Stats"},
	}, urlHandler.URLStats)

	huma.Register(api, huma.Operation{
		OperationID:   "redirect",
		Method:        http.MethodGet,
		Path:          "/{code}",
		Summary:       "Redirect to original URL",
		Description:   "Redirects to the original URL associated with the short code and counts the visit.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusFound,
	}, urlHandler.RedirectToURL)
}
