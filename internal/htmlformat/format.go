// Package htmlformat indents captured documents for the page.html artifact.
package htmlformat

import (
	"strings"

	"golang.org/x/net/html"
)

const indentUnit = "  "

// rawTags keep their content byte for byte.
var rawTags = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
}

// voidTags never have a closing tag, so they do not open a level.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// printer writes one token per line at the current depth, except inside raw
// tags where tokens are copied verbatim.
type printer struct {
	out   strings.Builder
	depth int
	raw   []string // open raw tags, innermost last
}

func (p *printer) inRaw() bool {
	return len(p.raw) > 0
}

// line writes s on its own indented line.
func (p *printer) line(s string) {
	p.out.WriteString(strings.Repeat(indentUnit, p.depth))
	p.out.WriteString(s)
	p.out.WriteByte('\n')
}

func (p *printer) start(name, raw string) {
	if p.inRaw() {
		p.out.WriteString(raw)
		return
	}
	p.line(raw)
	if voidTags[name] {
		return
	}
	p.depth++
	if rawTags[name] {
		p.raw = append(p.raw, name)
		// Raw content starts right after the opening tag line.
		p.out.WriteString(strings.Repeat(indentUnit, p.depth))
	}
}

func (p *printer) end(name, raw string) {
	if p.inRaw() {
		if p.raw[len(p.raw)-1] != name {
			p.out.WriteString(raw)
			return
		}
		p.raw = p.raw[:len(p.raw)-1]
		p.out.WriteByte('\n')
	}
	if p.depth > 0 {
		p.depth--
	}
	p.line(raw)
}

func (p *printer) text(raw string) {
	if p.inRaw() {
		p.out.WriteString(strings.TrimSpace(raw))
		return
	}
	if t := strings.Join(strings.Fields(raw), " "); t != "" {
		p.line(t)
	}
}

// Format indents HTML two spaces per level. Whitespace in text is collapsed
// except inside pre, textarea, script and style.
func Format(input string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(input))
	p := &printer{}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			p.start(string(name), raw)
		case html.EndTagToken:
			name, _ := z.TagName()
			p.end(string(name), raw)
		case html.TextToken:
			p.text(raw)
		default:
			// Doctype, comments and self-closing tags.
			if p.inRaw() {
				p.out.WriteString(raw)
			} else {
				p.line(raw)
			}
		}
	}

	return p.out.String(), nil
}
