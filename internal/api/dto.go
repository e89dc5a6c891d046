package api

import (
	"github.com/starford/quill/internal/catalog"
	"github.com/starford/quill/internal/index"
	"github.com/starford/quill/internal/siteservice"
)

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = siteservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = siteservice.DocumentListItem

// DocumentPage wraps one page of the chronological listing.
type DocumentPage = siteservice.DocumentPage

// DocumentListResponse wraps a category or tag listing.
type DocumentListResponse struct {
	Label     string             `json:"label" example:"cryptography" validate:"required"`
	Documents []DocumentListItem `json:"documents" validate:"required"`
}

// LabelCount is one category or tag with its document count.
type LabelCount = index.LabelCount

// LabelsResponse wraps the category or tag inventory.
type LabelsResponse struct {
	Labels []LabelCount `json:"labels" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = catalog.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
