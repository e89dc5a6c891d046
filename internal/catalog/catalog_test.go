package catalog

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/starford/quill/internal/models"
)

// row reads back a mirrored document with its labels.
func (db *DB) row(id string) (*Row, error) {
	r := Row{ID: id}
	err := db.conn.QueryRow(`SELECT path, title, summary, checksum, publish_date FROM documents WHERE id = ?`, id).
		Scan(&r.Path, &r.Title, &r.Summary, &r.Checksum, &r.PublishDate)
	if err != nil {
		return nil, err
	}
	if r.Categories, err = db.labelsOf(id, KindCategory); err != nil {
		return nil, err
	}
	if r.Tags, err = db.labelsOf(id, KindTag); err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) labelsOf(id, kind string) ([]string, error) {
	return db.column(`SELECT label FROM document_labels WHERE document_id = ? AND kind = ? ORDER BY label`, id, kind)
}

// withLabel lists the ids carrying a label, newest first.
func (db *DB) withLabel(kind, label string) ([]string, error) {
	return db.column(`
		SELECT d.id FROM documents d
		JOIN document_labels l ON l.document_id = d.id
		WHERE l.kind = ? AND l.label = ?
		ORDER BY d.publish_date DESC, d.id ASC
	`, kind, label)
}

func (db *DB) column(query string, args ...any) ([]string, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "quill-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func doc(id, checksum string, day int, draft bool, body string, tags ...string) *models.Document {
	return &models.Document{
		ID:          id,
		Path:        id + ".md",
		Title:       "Title " + id,
		Checksum:    checksum,
		PublishDate: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Draft:       draft,
		Body:        body,
		Categories:  []string{"Security"},
		Tags:        tags,
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM document_labels`).Scan(&count); err != nil {
		t.Fatalf("document_labels table missing: %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	row := Row{
		ID:          "posts/argon",
		Path:        "posts/argon.md",
		Title:       "Argon2",
		Checksum:    "abc123",
		PublishDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Categories:  []string{"Security"},
		Tags:        []string{"cryptography", "passwords"},
	}
	if err := db.Upsert(row, "memory-hard hashing"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := db.row("posts/argon")
	if err != nil {
		t.Fatalf("row: %v", err)
	}
	if got.Checksum != "abc123" || got.Title != "Argon2" {
		t.Errorf("row = %+v", got)
	}
	if !got.PublishDate.Equal(row.PublishDate) {
		t.Errorf("date = %v", got.PublishDate)
	}
	if !reflect.DeepEqual(got.Tags, row.Tags) || !reflect.DeepEqual(got.Categories, row.Categories) {
		t.Errorf("labels = %v / %v", got.Categories, got.Tags)
	}
}

func TestUpsertReplacesLabels(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(Row{ID: "a", Path: "a.md", Checksum: "1", Tags: []string{"old"}}, "body")
	_ = db.Upsert(Row{ID: "a", Path: "a.md", Checksum: "2", Tags: []string{"new"}}, "body")

	if ids, _ := db.withLabel(KindTag, "old"); len(ids) != 0 {
		t.Errorf("old label should be removed, got %v", ids)
	}
	if ids, _ := db.withLabel(KindTag, "new"); !reflect.DeepEqual(ids, []string{"a"}) {
		t.Errorf("new label ids = %v", ids)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(Row{ID: "del", Path: "del.md", Checksum: "x", Tags: []string{"t"}}, "body")
	if err := db.Delete("del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	sums, _ := db.Checksums()
	if _, ok := sums["del"]; ok {
		t.Error("deleted document still present")
	}
	if ids, _ := db.withLabel(KindTag, "t"); len(ids) != 0 {
		t.Errorf("labels survived delete: %v", ids)
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	docs := []*models.Document{
		doc("a", "1", 1, false, "alpha body", "cryptography"),
		doc("b", "1", 2, false, "beta body", "cryptography"),
		doc("draft", "1", 3, true, "secret"),
	}
	st, err := Sync(db, docs, discard())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if st.Upserted != 2 || st.Removed != 0 {
		t.Errorf("first sync stats = %+v", st)
	}
	if ids, _ := db.withLabel(KindTag, "cryptography"); !reflect.DeepEqual(ids, []string{"b", "a"}) {
		t.Errorf("withLabel = %v, want newest first", ids)
	}

	docs = []*models.Document{
		doc("a", "1", 1, false, "alpha body", "cryptography"),
		doc("c", "9", 4, false, "gamma body"),
	}
	st, err = Sync(db, docs, discard())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if st.Upserted != 1 || st.Unchanged != 1 || st.Removed != 1 {
		t.Errorf("second sync stats = %+v", st)
	}
	sums, _ := db.Checksums()
	if !reflect.DeepEqual(sums, map[string]string{"a": "1", "c": "9"}) {
		t.Errorf("checksums = %v", sums)
	}
}

func TestDelete_RowGone(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(Row{ID: "x", Path: "x.md", Checksum: "1"}, "body")
	_ = db.Delete("x")
	if _, err := db.row("x"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want no rows", err)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(Row{ID: "s", Path: "s.md", Title: "Search Me", Checksum: "1"}, "uniqueword appears here")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}

func TestSearch_SummaryAndDate(t *testing.T) {
	db := testDB(t)
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_ = db.Upsert(Row{ID: "p", Path: "p.md", Title: "Passwords", Summary: "Why argon2id wins", Checksum: "1", PublishDate: date}, "body text")

	results, err := db.Search("argon2id", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Summary != "Why argon2id wins" || !results[0].PublishDate.Equal(date) {
		t.Errorf("results = %+v", results)
	}
}
