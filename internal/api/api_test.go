package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/quill/internal/loader"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/pipeline"
	"github.com/starford/quill/internal/reload"
	"github.com/starford/quill/internal/render"
	"github.com/starford/quill/internal/site"
	"github.com/starford/quill/internal/siteservice"
	"github.com/starford/quill/internal/sse"
	"github.com/starford/quill/internal/testutil"
)

func testContent() map[string]string {
	return map[string]string{
		"posts/nostr/index.md": testutil.Article("Nostr groups", "2024-03-09", "## Relays\n\n{{< youtube abc >}}\n",
			"tags: [nostr, cryptography]", "categories: [Protocols]"),
		"posts/argon2.md": testutil.Article("Argon2", "2023-07-01", "memory-hard hashing",
			"tags: [cryptography]", "categories: [Security Engineering]"),
		"posts/html.md":  testutil.Article("On HTML", "2022-01-01", "markup"),
		"drafts/wip.md":  testutil.Article("WIP", "2025-01-01", "soon", "draft: true"),
		"broken.md":      "no header here",
	}
}

// testEnv builds the test content into a published snapshot and returns a
// router over it. A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) http.Handler {
	t.Helper()
	_, store := testutil.TestContent(t, testContent())
	db := testutil.TestDB(t)
	logger := testutil.QuietLogger()

	p := pipeline.New(loader.New(store, loader.WithLogger(logger)), render.New(render.Builtins()), pipeline.WithLogger(logger))
	holder := site.NewHolder()
	if _, err := reload.New(p, holder, reload.WithCatalog(db), reload.WithLogger(logger)).Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return NewRouter(siteservice.NewService(holder, db), authEnabled, authToken, sseHandler)
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListDocuments(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/documents?page=1&page_size=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var page DocumentPage
	_ = json.Unmarshal(w.Body.Bytes(), &page)
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Items[0].ID != "posts/nostr" || page.Items[1].ID != "posts/argon2" {
		t.Errorf("order = %s, %s", page.Items[0].ID, page.Items[1].ID)
	}

	w = get(t, router, "/documents?page=2&page_size=2")
	_ = json.Unmarshal(w.Body.Bytes(), &page)
	if len(page.Items) != 1 || page.Items[0].ID != "posts/html" {
		t.Errorf("page 2 = %+v", page.Items)
	}
}

func TestGetDocument(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/documents/posts/nostr")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Title != "Nostr groups" || doc.Path != "posts/nostr/index.md" {
		t.Errorf("doc = %+v", doc)
	}
	if len(doc.Tags) != 2 || doc.Tags[0] != "cryptography" {
		t.Errorf("tags = %v", doc.Tags)
	}
}

func TestGetDocument_EncodedSlash(t *testing.T) {
	router := testEnv(t, "")
	if w := get(t, router, "/documents/posts%2Fargon2"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestGetDocument_DraftVisibleByID(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/documents/drafts/wip")
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if w.Code != http.StatusOK || !doc.Draft {
		t.Errorf("status = %d doc = %+v", w.Code, doc)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	router := testEnv(t, "")
	if w := get(t, router, "/documents/nonexistent"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w := get(t, router, "/documents/broken"); w.Code != http.StatusNotFound {
		t.Errorf("malformed document should not be served: %d", w.Code)
	}
}

func TestGetDocumentHTML(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/documents/posts/nostr/html")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, `<h2 id="relays">Relays</h2>`) || !strings.Contains(body, "youtube-nocookie.com/embed/abc") {
		t.Errorf("html = %s", body)
	}
}

func TestGetDocument_IdentifierEndingInHTML(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/documents/posts/html")
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if w.Code != http.StatusOK || doc.ID != "posts/html" {
		t.Errorf("status = %d doc = %+v", w.Code, doc)
	}
}

func TestTaxonomies(t *testing.T) {
	router := testEnv(t, "")

	var labels LabelsResponse
	_ = json.Unmarshal(get(t, router, "/tags").Body.Bytes(), &labels)
	if len(labels.Labels) != 2 || labels.Labels[0] != (LabelCount{Label: "cryptography", Count: 2}) {
		t.Errorf("tags = %+v", labels)
	}

	var list DocumentListResponse
	_ = json.Unmarshal(get(t, router, "/tags/cryptography").Body.Bytes(), &list)
	if len(list.Documents) != 2 || list.Documents[0].ID != "posts/nostr" {
		t.Errorf("tag listing = %+v", list)
	}

	_ = json.Unmarshal(get(t, router, "/categories/Security%20Engineering").Body.Bytes(), &list)
	if list.Label != "Security Engineering" || len(list.Documents) != 1 {
		t.Errorf("category listing = %+v", list)
	}

	_ = json.Unmarshal(get(t, router, "/categories/security%20engineering").Body.Bytes(), &list)
	if len(list.Documents) != 0 {
		t.Errorf("labels must match exactly: %+v", list)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/search?q=hashing")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].ID != "posts/argon2" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")
	if w := get(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestReportEndpoint(t *testing.T) {
	router := testEnv(t, "")
	var rep models.Report
	_ = json.Unmarshal(get(t, router, "/report").Body.Bytes(), &rep)
	if rep.Loaded != 5 || rep.Drafts != 1 || rep.Count(models.IssueMalformedDocument) != 1 {
		t.Errorf("report = %+v", rep)
	}
}

func TestNotReady(t *testing.T) {
	router := NewRouter(siteservice.NewService(site.NewHolder(), nil), false, "", nil)
	if w := get(t, router, "/documents"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret")
	if w := get(t, router, "/documents"); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := testEnvFull(t, false, "", nil)
	if w := get(t, router, "/documents"); w.Code != http.StatusOK {
		t.Errorf("disabled mode = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	router := testEnv(t, "secret")
	if w := get(t, router, "/documents?access_token=secret"); w.Code != http.StatusOK {
		t.Errorf("query token = %d, want 200", w.Code)
	}
	w := get(t, router, "/documents?access_token=nope")
	if w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") == "" {
		t.Errorf("bad query token = %d, header %q", w.Code, w.Header().Get("WWW-Authenticate"))
	}
}

// SSE endpoint tests.

func TestSSEEvents_AuthProtected(t *testing.T) {
	b := sse.NewBroker(time.Second)
	defer b.Close()
	router := testEnvFull(t, true, "secret", b)
	if w := get(t, router, "/events"); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidTokenStreams(t *testing.T) {
	b := sse.NewBroker(time.Second)
	defer b.Close()
	router := testEnvFull(t, true, "tok", b)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	testutil.Eventually(t, time.Second, 10*time.Millisecond, func() bool { return b.ClientCount() == 1 }, "client never subscribed")
	b.PublishReload(sse.Reload{RunID: "r9", Documents: 3})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "event: site.reloaded") {
		t.Errorf("status = %d body = %q", w.Code, w.Body.String())
	}
}
