package render

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

func TestRender_MarkupOnly(t *testing.T) {
	r := New(Builtins())
	out := r.Render(&models.Document{ID: "a", Body: "# Title\n\nplain text"})
	if len(out.Segments) != 1 || out.Segments[0].Kind != models.SegmentMarkup {
		t.Fatalf("segments = %+v", out.Segments)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("warnings = %v", out.Warnings)
	}
}

func TestRender_UnregisteredKind(t *testing.T) {
	body := "before {{< tweet id=\"42\" >}} after"
	r := New(Builtins())
	out := r.Render(&models.Document{ID: "posts/x", Body: body})

	var placeholders int
	for _, s := range out.Segments {
		if s.Kind == models.SegmentPlaceholder {
			placeholders++
			if s.Text != `{{< tweet id="42" >}}` {
				t.Errorf("placeholder text = %q", s.Text)
			}
		}
	}
	if placeholders != 1 {
		t.Errorf("placeholders = %d, want 1", placeholders)
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", out.Warnings)
	}
	w := out.Warnings[0]
	if w.Kind != "tweet" || w.DocumentID != "posts/x" || w.Offset != strings.Index(body, "{{<") {
		t.Errorf("warning = %+v", w)
	}
	if len(out.Segments) != 3 {
		t.Errorf("segments = %+v", out.Segments)
	}
}

func TestRender_ResolverErrorBecomesPlaceholder(t *testing.T) {
	r := New(Builtins())
	out := r.Render(&models.Document{ID: "a", Body: "{{< youtube >}}"})
	if len(out.Segments) != 1 || out.Segments[0].Kind != models.SegmentPlaceholder {
		t.Fatalf("segments = %+v", out.Segments)
	}
	if len(out.Warnings) != 1 || !errors.Is(out.Warnings[0], errMissingID) {
		t.Errorf("warnings = %v", out.Warnings)
	}
	var w *apperr.UnresolvedDirectiveWarning
	if !errors.As(out.Warnings[0], &w) {
		t.Error("warning should be an UnresolvedDirectiveWarning")
	}
}

func TestRender_ResolvedDirective(t *testing.T) {
	r := New(Builtins())
	out := r.Render(&models.Document{ID: "a", Body: `{{< youtube id="dQw4w9WgXcQ" label="Talk" >}}`})
	if len(out.Segments) != 1 || out.Segments[0].Kind != models.SegmentDirective {
		t.Fatalf("segments = %+v", out.Segments)
	}
	html := out.Segments[0].Text
	if !strings.Contains(html, "youtube-nocookie.com/embed/dQw4w9WgXcQ") || !strings.Contains(html, `title="Talk"`) {
		t.Errorf("html = %s", html)
	}
}

func TestRender_CustomResolver(t *testing.T) {
	reg := NewRegistry()
	reg.Register("note", func(d models.Directive) (string, error) {
		return "<aside>" + d.Inner + "</aside>", nil
	})
	out := New(reg).Render(&models.Document{ID: "a", Body: "{{% note %}}careful{{% /note %}}"})
	if len(out.Segments) != 1 || out.Segments[0].Text != "<aside>careful</aside>" {
		t.Errorf("segments = %+v", out.Segments)
	}
}

func TestRender_Idempotent(t *testing.T) {
	doc := &models.Document{ID: "a", Body: "x {{< vimeo 123 >}} y {{< gist a b >}} z {{< figure src=a.png >}}"}
	r := New(Builtins())
	first, second := r.Render(doc), r.Render(doc)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("renditions differ:\n%+v\n%+v", first, second)
	}
}

func TestRender_NilResolver(t *testing.T) {
	out := New(nil).Render(&models.Document{ID: "a", Body: "{{< youtube x >}}"})
	if len(out.Warnings) != 1 {
		t.Errorf("warnings = %v", out.Warnings)
	}
}

func TestFigure(t *testing.T) {
	got, err := Figure(models.Directive{Kind: "figure", Params: map[string]string{"src": "a.png", "alt": `"x"`}, Inner: " Cap "})
	if err != nil {
		t.Fatal(err)
	}
	want := `<figure><img src="a.png" alt="&#34;x&#34;"><figcaption>Cap</figcaption></figure>`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
	if _, err := Figure(models.Directive{Kind: "figure"}); err == nil {
		t.Error("missing src should fail")
	}
}

func TestRegistry_KindsSorted(t *testing.T) {
	reg := Builtins()
	reg.Register("audio", func(models.Directive) (string, error) { return "", nil })
	want := []string{"audio", "figure", "vimeo", "youtube"}
	if got := reg.Kinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("Kinds = %v, want %v", got, want)
	}
}

func TestHTML_SplicesDirectives(t *testing.T) {
	r := New(Builtins())
	rend := r.Render(&models.Document{ID: "a", Body: "## Intro\n\nSee below.\n\n{{< vimeo 76979871 >}}\n\nInline {{< unknown >}} token.\n"})
	out, err := HTML(rend)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<h2 id="intro">Intro</h2>`) {
		t.Errorf("heading missing: %s", out)
	}
	if !strings.Contains(out, `<div class="embed vimeo"><iframe src="https://player.vimeo.com/video/76979871"`) {
		t.Errorf("embed missing: %s", out)
	}
	if strings.Contains(out, "<p><div") {
		t.Errorf("block directive wrapped in paragraph: %s", out)
	}
	if !strings.Contains(out, `<span class="unresolved">{{&lt; unknown &gt;}}</span>`) {
		t.Errorf("placeholder missing: %s", out)
	}
	if markerRe.MatchString(out) {
		t.Errorf("marker leaked: %q", out)
	}
}

func TestHTML_HeadingWithDirectiveKeepsPlainID(t *testing.T) {
	r := New(Builtins())
	out, err := HTML(r.Render(&models.Document{ID: "a", Body: "## Demo {{< youtube abc >}}\n\n## Demo\n"}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<h2 id="demo">Demo <div class="embed youtube">`) {
		t.Errorf("heading id: %s", out)
	}
	if !strings.Contains(out, `<h2 id="demo-1">Demo</h2>`) {
		t.Errorf("second heading id: %s", out)
	}
}

func TestHTML_DirectiveInLinkTargetStaysOutOfMarkup(t *testing.T) {
	r := New(Builtins())
	out, err := HTML(r.Render(&models.Document{ID: "a", Body: `See [the post]({{< ref "other.md" >}}) now.`}))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<span") {
		t.Errorf("placeholder markup inside attribute: %s", out)
	}
	if !strings.Contains(out, `">the post</a> now.</p>`) || !strings.Contains(out, "other.md") {
		t.Errorf("link: %s", out)
	}
	if markerRe.MatchString(out) {
		t.Errorf("marker leaked: %q", out)
	}
}

func TestHTML_DirectiveInCodeSpanIsLiteral(t *testing.T) {
	r := New(Builtins())
	out, err := HTML(r.Render(&models.Document{ID: "a", Body: "Use `{{< vimeo 1 >}}` to embed.\n"}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<code>{{&lt; vimeo 1 &gt;}}</code>") {
		t.Errorf("code span: %s", out)
	}
}
