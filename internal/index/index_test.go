package index

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func fixture() []*models.Document {
	return []*models.Document{
		{ID: "nostr-groups", Title: "Nostr groups", PublishDate: day(2024, 3, 9),
			Categories: []string{"Protocols"}, Tags: []string{"cryptography", "nostr"}},
		{ID: "argon2", Title: "Argon2 in practice", PublishDate: day(2023, 7, 1),
			Categories: []string{"Security"}, Tags: []string{"cryptography", "passwords"}},
		{ID: "trusted-types", Title: "Trusted Types", PublishDate: day(2024, 3, 9),
			Categories: []string{"Security", "Web"}, Tags: []string{"browsers"}},
		{ID: "wip", Title: "Unfinished", PublishDate: day(2025, 1, 1), Draft: true,
			Categories: []string{"Security"}, Tags: []string{"cryptography"}},
	}
}

func ids(docs []*models.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func mustBuild(t *testing.T, docs []*models.Document) *Index {
	t.Helper()
	idx, err := Build(docs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestBuild_ChronologicalOrder(t *testing.T) {
	idx := mustBuild(t, fixture())
	// Same date breaks ties by identifier ascending.
	want := []string{"nostr-groups", "trusted-types", "argon2"}
	if got := ids(idx.Chronological()); !reflect.DeepEqual(got, want) {
		t.Errorf("chronological = %v, want %v", got, want)
	}
}

func TestBuild_SharedTagListsBothNewestFirst(t *testing.T) {
	idx := mustBuild(t, fixture())
	want := []string{"nostr-groups", "argon2"}
	if got := ids(idx.ByTag("cryptography")); !reflect.DeepEqual(got, want) {
		t.Errorf("ByTag(cryptography) = %v, want %v", got, want)
	}
	if got := ids(idx.ByCategory("Security")); !reflect.DeepEqual(got, []string{"trusted-types", "argon2"}) {
		t.Errorf("ByCategory(Security) = %v", got)
	}
}

func TestBuild_DraftsExcludedFromListings(t *testing.T) {
	idx := mustBuild(t, fixture())
	for _, list := range [][]*models.Document{idx.Chronological(), idx.ByTag("cryptography"), idx.ByCategory("Security")} {
		for _, d := range list {
			if d.Draft {
				t.Errorf("draft %s in listing", d.ID)
			}
		}
	}
	if d, ok := idx.Get("wip"); !ok || !d.Draft {
		t.Error("draft should still be retrievable by identifier")
	}
	if idx.Drafts() != 1 || idx.Len() != 3 {
		t.Errorf("drafts=%d len=%d", idx.Drafts(), idx.Len())
	}
	if len(idx.All()) != 4 {
		t.Errorf("All() = %v", ids(idx.All()))
	}
}

func TestBuild_IdempotentAndOrderIndependent(t *testing.T) {
	a := mustBuild(t, fixture())
	shuffled := fixture()
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	b := mustBuild(t, shuffled)

	if !reflect.DeepEqual(a.Chronological(), b.Chronological()) {
		t.Error("chronological differs across builds")
	}
	if !reflect.DeepEqual(a.byTag, b.byTag) || !reflect.DeepEqual(a.byCategory, b.byCategory) {
		t.Error("label listings differ across builds")
	}
}

func TestBuild_LabelsCaseSensitive(t *testing.T) {
	idx := mustBuild(t, []*models.Document{
		{ID: "a", PublishDate: day(2024, 1, 1), Tags: []string{"Go"}},
		{ID: "b", PublishDate: day(2024, 1, 2), Tags: []string{"go"}},
	})
	if got := ids(idx.ByTag("Go")); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("ByTag(Go) = %v", got)
	}
	if got := idx.ByTag("GO"); len(got) != 0 {
		t.Errorf("ByTag(GO) = %v, want empty", ids(got))
	}
}

func TestBuild_DuplicateID(t *testing.T) {
	docs := fixture()
	docs = append(docs, &models.Document{ID: "argon2", PublishDate: day(2020, 1, 1)})
	if _, err := Build(docs); !errors.Is(err, apperr.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestBuild_Empty(t *testing.T) {
	idx := mustBuild(t, nil)
	if idx.Len() != 0 || len(idx.Chronological()) != 0 || len(idx.Categories()) != 0 {
		t.Error("empty build should have empty listings")
	}
	p := idx.Page(1, 10)
	if p.Total != 0 || p.TotalPages != 0 || len(p.Items) != 0 {
		t.Errorf("page = %+v", p)
	}
}

func TestListings_ReturnCopies(t *testing.T) {
	idx := mustBuild(t, fixture())
	list := idx.Chronological()
	list[0] = nil
	if idx.Chronological()[0] == nil {
		t.Error("caller mutation leaked into the index")
	}
}

func TestPage(t *testing.T) {
	var docs []*models.Document
	for i := 1; i <= 25; i++ {
		docs = append(docs, &models.Document{ID: string(rune('a'+i-1)) + "-post", PublishDate: day(2024, 1, i)})
	}
	idx := mustBuild(t, docs)

	p := idx.Page(1, 10)
	if len(p.Items) != 10 || p.Total != 25 || p.TotalPages != 3 || p.Items[0].ID != "y-post" {
		t.Errorf("page 1 = %+v", p)
	}
	p = idx.Page(3, 10)
	if len(p.Items) != 5 || p.Items[4].ID != "a-post" {
		t.Errorf("page 3 items = %v", ids(p.Items))
	}
	if p = idx.Page(4, 10); len(p.Items) != 0 {
		t.Errorf("page past end = %v", ids(p.Items))
	}
	if p = idx.Page(0, 0); p.Page != 1 || p.PageSize != DefaultPageSize {
		t.Errorf("defaults = %+v", p)
	}
	if p = idx.Page(1, 1000); p.PageSize != MaxPageSize {
		t.Errorf("cap = %d", p.PageSize)
	}
}

func TestLabelCounts(t *testing.T) {
	idx := mustBuild(t, fixture())
	want := []LabelCount{{"Protocols", 1}, {"Security", 2}, {"Web", 1}}
	if got := idx.Categories(); !reflect.DeepEqual(got, want) {
		t.Errorf("categories = %v, want %v", got, want)
	}
	tags := idx.Tags()
	if tags[0] != (LabelCount{"browsers", 1}) || tags[1] != (LabelCount{"cryptography", 2}) {
		t.Errorf("tags = %v", tags)
	}
}
