package render

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/quill/internal/models"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
		parser.WithASTTransformers(util.Prioritized(directiveTransformer{}, 100)),
	),
	goldmark.WithRendererOptions(
		renderer.WithNodeRenderers(util.Prioritized(directiveRenderer{}, 100)),
	),
)

// Segments are stood in for by private-use runes: an opening rune, the
// segment index as decimal digit runes, and a closing rune. Markdown treats
// them as plain text, so they survive parsing wherever they land.
const (
	markerOpen  = '\uE000'
	markerClose = '\uE001'
	markerDigit = '\uE010'
)

var markerRe = regexp.MustCompile(`\x{E000}([\x{E010}-\x{E019}]+)\x{E001}`)

func marker(i int) string {
	var b strings.Builder
	b.WriteRune(markerOpen)
	for _, c := range strconv.Itoa(i) {
		b.WriteRune(markerDigit + (c - '0'))
	}
	b.WriteRune(markerClose)
	return b.String()
}

func markerIndex(digits []byte) int {
	n := 0
	for _, r := range string(digits) {
		n = n*10 + int(r-markerDigit)
	}
	return n
}

// fragment is what a marker expands to: html in text context, raw (the
// original token) inside attributes and code.
type fragment struct {
	html string
	raw  string
}

type fragments map[int]fragment

func (f fragments) lookup(m []byte) (fragment, bool) {
	sub := markerRe.FindSubmatch(m)
	if sub == nil {
		return fragment{}, false
	}
	frag, ok := f[markerIndex(sub[1])]
	return frag, ok
}

// unmark replaces every marker in b with its raw token.
func (f fragments) unmark(b []byte) []byte {
	return markerRe.ReplaceAllFunc(b, func(m []byte) []byte {
		frag, _ := f.lookup(m)
		return []byte(frag.raw)
	})
}

var fragmentsKey = parser.NewContextKey()

// HTML assembles a rendition into an HTML fragment. Markup segments go
// through Markdown; directive HTML and escaped placeholder text take the
// place of their tokens. Tokens that end up in link targets, code, or
// heading text fall back to their escaped raw form.
func HTML(r Rendition) (string, error) {
	var src strings.Builder
	frags := make(fragments)
	for i, seg := range r.Segments {
		switch seg.Kind {
		case models.SegmentMarkup:
			src.WriteString(seg.Text)
		case models.SegmentDirective:
			raw := ""
			if seg.Directive != nil {
				raw = seg.Directive.Raw
			}
			frags[i] = fragment{html: seg.Text, raw: raw}
			src.WriteString(marker(i))
		case models.SegmentPlaceholder:
			frags[i] = fragment{
				html: `<span class="unresolved">` + html.EscapeString(seg.Text) + `</span>`,
				raw:  seg.Text,
			}
			src.WriteString(marker(i))
		}
	}

	pc := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	pc.Set(fragmentsKey, frags)
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src.String()), &buf, parser.WithContext(pc)); err != nil {
		return "", fmt.Errorf("render: convert %s: %w", r.DocumentID, err)
	}
	if len(frags) == 0 {
		return buf.String(), nil
	}
	// Whatever is left sits in code or other verbatim text.
	out := markerRe.ReplaceAllFunc(buf.Bytes(), func(m []byte) []byte {
		frag, _ := frags.lookup(m)
		return []byte(html.EscapeString(frag.raw))
	})
	return string(out), nil
}

var (
	kindDirective      = ast.NewNodeKind("Directive")
	kindDirectiveBlock = ast.NewNodeKind("DirectiveBlock")
)

type directiveNode struct {
	ast.BaseInline
	html string
}

func (n *directiveNode) Kind() ast.NodeKind { return kindDirective }

func (n *directiveNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// directiveBlock replaces a paragraph that held nothing but one directive.
type directiveBlock struct {
	ast.BaseBlock
	html string
}

func (n *directiveBlock) Kind() ast.NodeKind { return kindDirectiveBlock }

func (n *directiveBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type directiveTransformer struct{}

func (directiveTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	frags, _ := pc.Get(fragmentsKey).(fragments)
	if len(frags) == 0 {
		return
	}
	source := reader.Source()

	var texts []*ast.Text
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.CodeSpan:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			texts = append(texts, v)
		case *ast.Link:
			v.Destination = frags.unmark(v.Destination)
			v.Title = frags.unmark(v.Title)
		case *ast.Image:
			v.Destination = frags.unmark(v.Destination)
			v.Title = frags.unmark(v.Title)
		}
		return ast.WalkContinue, nil
	})

	touched := make(map[ast.Node]struct{})
	for _, t := range texts {
		parent := t.Parent()
		if splitText(t, source, frags) {
			touched[parent] = struct{}{}
		}
	}
	for parent := range touched {
		if para, ok := parent.(*ast.Paragraph); ok {
			liftParagraph(para, source)
		}
	}
}

// splitText cuts t at every marker and puts directive nodes between the
// remaining text pieces. It reports whether t was replaced.
func splitText(t *ast.Text, source []byte, frags fragments) bool {
	seg := t.Segment
	val := seg.Value(source)
	locs := markerRe.FindAllSubmatchIndex(val, -1)
	if len(locs) == 0 {
		return false
	}
	parent := t.Parent()
	pos := 0
	for _, loc := range locs {
		frag, ok := frags[markerIndex(val[loc[2]:loc[3]])]
		if !ok {
			continue
		}
		if loc[0] > pos {
			parent.InsertBefore(parent, t, ast.NewTextSegment(text.NewSegment(seg.Start+pos, seg.Start+loc[0])))
		}
		parent.InsertBefore(parent, t, &directiveNode{html: frag.html})
		pos = loc[1]
	}
	if pos == 0 {
		return false
	}
	if pos < len(val) || t.SoftLineBreak() || t.HardLineBreak() {
		tail := ast.NewTextSegment(text.NewSegment(seg.Start+pos, seg.Stop))
		tail.SetSoftLineBreak(t.SoftLineBreak())
		tail.SetHardLineBreak(t.HardLineBreak())
		parent.InsertBefore(parent, t, tail)
	}
	parent.RemoveChild(parent, t)
	return true
}

// liftParagraph swaps a paragraph holding a single directive and nothing
// else for a block, so block embeds are not wrapped in <p>.
func liftParagraph(para *ast.Paragraph, source []byte) {
	var only *directiveNode
	for c := para.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *directiveNode:
			if only != nil {
				return
			}
			only = v
		case *ast.Text:
			if len(bytes.TrimSpace(v.Segment.Value(source))) != 0 {
				return
			}
		default:
			return
		}
	}
	if only == nil {
		return
	}
	blk := &directiveBlock{html: only.html}
	blk.SetBlankPreviousLines(para.HasBlankPreviousLines())
	parent := para.Parent()
	parent.ReplaceChild(parent, para, blk)
}

type directiveRenderer struct{}

func (r directiveRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(kindDirective, r.renderInline)
	reg.Register(kindDirectiveBlock, r.renderBlock)
}

func (directiveRenderer) renderInline(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(n.(*directiveNode).html)
	}
	return ast.WalkContinue, nil
}

func (directiveRenderer) renderBlock(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	out := n.(*directiveBlock).html
	_, _ = w.WriteString(out)
	if !strings.HasSuffix(out, "\n") {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

// headingIDs generates heading anchors the way goldmark does by default but
// ignores segment markers, so a heading carrying a directive keeps the
// anchor its text alone would give.
type headingIDs struct {
	values map[string]bool
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{values: make(map[string]bool)}
}

func (s *headingIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	value = markerRe.ReplaceAll(value, nil)
	value = util.TrimLeftSpace(value)
	value = util.TrimRightSpace(value)
	result := []byte{}
	for i := 0; i < len(value); {
		v := value[i]
		l := util.UTF8Len(v)
		i += int(l)
		if l != 1 {
			continue
		}
		if util.IsAlphaNumeric(v) {
			if 'A' <= v && v <= 'Z' {
				v += 'a' - 'A'
			}
			result = append(result, v)
		} else if util.IsSpace(v) || v == '-' || v == '_' {
			result = append(result, '-')
		}
	}
	if len(result) == 0 {
		if kind == ast.KindHeading {
			result = []byte("heading")
		} else {
			result = []byte("id")
		}
	}
	if !s.values[string(result)] {
		s.values[string(result)] = true
		return result
	}
	for i := 1; ; i++ {
		next := fmt.Sprintf("%s-%d", result, i)
		if !s.values[next] {
			s.values[next] = true
			return []byte(next)
		}
	}
}

func (s *headingIDs) Put(value []byte) {
	s.values[string(value)] = true
}
