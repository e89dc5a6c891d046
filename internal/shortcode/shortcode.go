// Package shortcode tokenizes embedded widget directives in a document body.
//
// Recognised forms:
//
//	{{< youtube id="abc" label="Talk" >}}
//	{{% note %}}inner text{{% /note %}}
//	{{< figure src=cover.png "positional" />}}
//	{{< figure src=cover.png/>}}
//	{{</* youtube id="abc" */>}}   escaped; emitted literally without the comment markers
//
// A trailing / closes the directive, so an unquoted value that itself ends
// in / must be quoted. The tokenizer never executes anything; resolution
// belongs to the renderer.
package shortcode

import (
	"errors"
	"strconv"
	"strings"

	"github.com/starford/quill/internal/models"
)

// Token is either literal body text or one directive.
type Token struct {
	Text      string
	Directive *models.Directive
}

type delims struct {
	open, close string
}

var (
	angle   = delims{open: "{{<", close: ">}}"}
	percent = delims{open: "{{%", close: "%}}"}
)

var errEmptyKind = errors.New("shortcode: empty kind")

// Tokenize splits body into literal text and directive tokens. Adjacent
// literal pieces are merged. Malformed or unterminated tokens are literal.
func Tokenize(body string) []Token {
	var out []Token
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, Token{Text: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(body) {
		start, d := nextOpen(body, i)
		if start < 0 {
			lit.WriteString(body[i:])
			break
		}
		lit.WriteString(body[i:start])
		afterOpen := start + len(d.open)

		// Escaped form: {{</* ... */>}} renders as {{< ... >}}.
		if strings.HasPrefix(body[afterOpen:], "/*") {
			endMarker := "*/" + d.close
			end := strings.Index(body[afterOpen:], endMarker)
			if end < 0 {
				lit.WriteString(body[start:])
				break
			}
			inner := body[afterOpen+2 : afterOpen+end]
			lit.WriteString(d.open + inner + d.close)
			i = afterOpen + end + len(endMarker)
			continue
		}

		end := strings.Index(body[afterOpen:], d.close)
		if end < 0 {
			lit.WriteString(body[start:])
			break
		}
		closeAt := afterOpen + end + len(d.close)
		inner := strings.TrimSpace(body[afterOpen : afterOpen+end])

		selfClosing := strings.HasSuffix(inner, "/")
		if selfClosing {
			inner = strings.TrimSpace(strings.TrimSuffix(inner, "/"))
		}
		if strings.HasPrefix(inner, "/") {
			// Stray closing tag.
			lit.WriteString(body[start:closeAt])
			i = closeAt
			continue
		}

		kind, params, err := parseArgs(inner)
		if err != nil {
			lit.WriteString(body[start:closeAt])
			i = closeAt
			continue
		}

		dir := &models.Directive{Kind: kind, Params: params, Offset: start}
		i = closeAt
		if !selfClosing {
			if innerEnd, after, ok := findClosing(body, closeAt, kind); ok {
				dir.Inner = body[closeAt:innerEnd]
				i = after
			}
		}
		dir.Raw = body[start:i]

		flush()
		out = append(out, Token{Directive: dir})
	}
	flush()
	return out
}

func nextOpen(body string, from int) (int, delims) {
	a := strings.Index(body[from:], angle.open)
	p := strings.Index(body[from:], percent.open)
	switch {
	case a < 0 && p < 0:
		return -1, delims{}
	case p < 0 || (a >= 0 && a < p):
		return from + a, angle
	default:
		return from + p, percent
	}
}

const spaces = " \t\r\n"

// findClosing looks for {{< /kind >}} after from. It only pairs when the
// closing tag comes before the next opening tag of the same kind.
func findClosing(body string, from int, kind string) (innerEnd, after int, ok bool) {
	for i := from; ; {
		start, d := nextOpen(body, i)
		if start < 0 {
			return 0, 0, false
		}
		i = start + len(d.open)

		rest := strings.TrimLeft(body[i:], spaces)
		rest, closing := strings.CutPrefix(rest, "/")
		if closing {
			rest = strings.TrimLeft(rest, spaces)
		}
		rest, found := strings.CutPrefix(rest, kind)
		if !found || rest == "" {
			continue
		}
		if !closing {
			if strings.ContainsRune(spaces+">%/", rune(rest[0])) {
				return 0, 0, false
			}
			continue
		}
		rest = strings.TrimLeft(rest, spaces)
		if strings.HasPrefix(rest, angle.close) || strings.HasPrefix(rest, percent.close) {
			return start, len(body) - len(rest) + len(angle.close), true
		}
	}
}

// parseArgs splits `kind key="v" bare "positional"` into a kind and a
// parameter map; positional values are keyed "0", "1", ...
func parseArgs(s string) (string, map[string]string, error) {
	args, err := splitArgs(s)
	if err != nil {
		return "", nil, err
	}
	if len(args) == 0 || args[0].value == "" || args[0].eq >= 0 {
		return "", nil, errEmptyKind
	}
	params := make(map[string]string, len(args)-1)
	pos := 0
	for _, a := range args[1:] {
		if a.eq > 0 {
			params[a.value[:a.eq]] = a.value[a.eq+1:]
			continue
		}
		params[strconv.Itoa(pos)] = a.value
		pos++
	}
	return args[0].value, params, nil
}

type arg struct {
	value string
	eq    int // index of the first unquoted '=' in value, -1 if none
}

func splitArgs(s string) ([]arg, error) {
	var out []arg
	var cur strings.Builder
	eq := -1
	var quote rune
	inArg := false

	emit := func() {
		if inArg {
			out = append(out, arg{value: cur.String(), eq: eq})
		}
		cur.Reset()
		eq = -1
		inArg = false
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == '\\' && quote == '"' && i+1 < len(runes) {
				i++
				cur.WriteRune(runes[i])
				continue
			}
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '`':
			quote = r
			inArg = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			emit()
		case r == '=' && eq < 0:
			eq = cur.Len()
			cur.WriteRune(r)
			inArg = true
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, errors.New("shortcode: unterminated quote")
	}
	emit()
	return out, nil
}
