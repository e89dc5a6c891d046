package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/siteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *siteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *siteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pathParam extracts and unescapes a route parameter. Encoded slashes from
// OpenAPI clients (e.g. posts%2Fnostr) are accepted.
func pathParam(r *http.Request, name string) string {
	raw := strings.TrimPrefix(chi.URLParam(r, name), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocuments handles GET /documents.
//
//	@Summary		List published documents, newest first
//	@Tags			documents
//	@Produce		json
//	@Param			page		query		int	false	"Page number (1-based)"
//	@Param			page_size	query		int	false	"Page size (max 100)"
//	@Success		200			{object}	DocumentPage
//	@Failure		503			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	p, err := h.svc.ListRecent(r.Context(), page, size)
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetDocument handles GET /documents/* and GET /documents/*/html.
//
//	@Summary		Get a single document by identifier (drafts included)
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document identifier"
//	@Success		200	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "*")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("identifier is required"))
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), id)
	if err == nil {
		writeJSON(w, http.StatusOK, doc)
		return
	}
	if base, ok := strings.CutSuffix(id, "/html"); ok && errors.Is(err, apperr.ErrNotFound) {
		h.documentHTML(w, r, base)
		return
	}
	writeError(w, "get document", err)
}

// documentHTML serves the assembled HTML body of a document.
//
//	@Summary		Get the rendered HTML body of a document
//	@Tags			documents
//	@Produce		html
//	@Param			id	path	string	true	"Document identifier"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/html [get]
func (h *Handler) documentHTML(w http.ResponseWriter, r *http.Request, id string) {
	html, err := h.svc.DocumentHTML(r.Context(), id)
	if err != nil {
		writeError(w, "render document", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// Categories handles GET /categories.
//
//	@Summary		List categories with document counts
//	@Tags			taxonomy
//	@Produce		json
//	@Success		200	{object}	LabelsResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	labels, err := h.svc.Categories(r.Context())
	if err != nil {
		writeError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, LabelsResponse{Labels: labels})
}

// CategoryDocuments handles GET /categories/{label}.
//
//	@Summary		List published documents in a category
//	@Tags			taxonomy
//	@Produce		json
//	@Param			label	path		string	true	"Category label (exact match)"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/categories/{label} [get]
func (h *Handler) CategoryDocuments(w http.ResponseWriter, r *http.Request) {
	label := pathParam(r, "label")
	docs, err := h.svc.ListByCategory(r.Context(), label)
	if err != nil {
		writeError(w, "list category", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Label: label, Documents: docs})
}

// Tags handles GET /tags.
//
//	@Summary		List tags with document counts
//	@Tags			taxonomy
//	@Produce		json
//	@Success		200	{object}	LabelsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	labels, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, LabelsResponse{Labels: labels})
}

// TagDocuments handles GET /tags/{label}.
//
//	@Summary		List published documents with a tag
//	@Tags			taxonomy
//	@Produce		json
//	@Param			label	path		string	true	"Tag label (exact match)"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/tags/{label} [get]
func (h *Handler) TagDocuments(w http.ResponseWriter, r *http.Request) {
	label := pathParam(r, "label")
	docs, err := h.svc.ListByTag(r.Context(), label)
	if err != nil {
		writeError(w, "list tag", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Label: label, Documents: docs})
}

// Search handles GET /search.
//
//	@Summary		Full-text search across published documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Report handles GET /report.
//
//	@Summary		Build report of the published snapshot
//	@Tags			site
//	@Produce		json
//	@Success		200	{object}	models.Report
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/report [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Report(r.Context())
	if err != nil {
		writeError(w, "report", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
