// Package markup renders assistant replies as restricted rich text.
//
// Replies are Markdown written by a language model. Parse reduces them to
// paragraphs, lists and bold spans; nothing else survives. Links keep their
// text, images their alt text, code and raw HTML become literal text.
package markup

import (
	"html"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// BlockKind is the type of a top-level block.
type BlockKind string

const (
	Paragraph BlockKind = "paragraph"
	List      BlockKind = "list"
)

// Span is a run of text. Break marks a line break after the text.
type Span struct {
	Text  string `json:"text,omitempty"`
	Bold  bool   `json:"bold,omitempty"`
	Break bool   `json:"break,omitempty"`
}

// Item is one list entry; nested lists land in Children.
type Item struct {
	Spans    []Span  `json:"spans"`
	Children []Block `json:"children,omitempty"`
}

// Block is a paragraph or a list.
type Block struct {
	Kind    BlockKind `json:"kind"`
	Spans   []Span    `json:"spans,omitempty"`
	Ordered bool      `json:"ordered,omitempty"`
	Start   int       `json:"start,omitempty"`
	Items   []Item    `json:"items,omitempty"`
}

var parser = goldmark.New().Parser()

// Parse converts Markdown into blocks.
func Parse(src string) []Block {
	source := []byte(src)
	doc := parser.Parse(text.NewReader(source))
	w := walker{source: source}
	return w.blocks(doc)
}

type walker struct {
	source []byte
}

func (w walker) blocks(parent ast.Node) []Block {
	var out []Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			if spans := w.inline(node, false); len(spans) > 0 {
				out = append(out, Block{Kind: Paragraph, Spans: spans})
			}
		case *ast.Heading:
			if spans := w.inline(node, true); len(spans) > 0 {
				out = append(out, Block{Kind: Paragraph, Spans: spans})
			}
		case *ast.List:
			out = append(out, w.list(node))
		case *ast.Blockquote:
			out = append(out, w.blocks(node)...)
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			if spans := w.literal(node); len(spans) > 0 {
				out = append(out, Block{Kind: Paragraph, Spans: spans})
			}
		}
	}
	return out
}

func (w walker) list(node *ast.List) Block {
	b := Block{Kind: List, Ordered: node.IsOrdered()}
	if b.Ordered {
		b.Start = node.Start
	}
	for li := node.FirstChild(); li != nil; li = li.NextSibling() {
		var item Item
		for _, child := range w.blocks(li) {
			if child.Kind == Paragraph && len(item.Children) == 0 {
				if len(item.Spans) > 0 {
					item.Spans[len(item.Spans)-1].Break = true
				}
				item.Spans = append(item.Spans, child.Spans...)
				continue
			}
			item.Children = append(item.Children, child)
		}
		b.Items = append(b.Items, item)
	}
	return b
}

// inline flattens inline children into spans. Only strong emphasis (level 2)
// turns bold on.
func (w walker) inline(parent ast.Node, bold bool) []Span {
	var out []Span
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			out = appendText(out, string(resolve(node.Segment.Value(w.source))), bold)
			if node.SoftLineBreak() || node.HardLineBreak() {
				out = appendBreak(out, bold)
			}
		case *ast.String:
			out = appendText(out, string(node.Value), bold)
		case *ast.Emphasis:
			out = append(out, w.inline(node, bold || node.Level >= 2)...)
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				out = appendText(out, string(seg.Value(w.source)), bold)
			}
		case *ast.AutoLink:
			out = appendText(out, string(node.Label(w.source)), bold)
		case *ast.CodeSpan:
			// Code keeps its source text: no escapes, no entities.
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					out = appendText(out, string(t.Segment.Value(w.source)), bold)
				}
			}
		default:
			// Links and images contribute their text children.
			out = append(out, w.inline(node, bold)...)
		}
	}
	return out
}

// resolve applies backslash escapes and character references, as goldmark's
// HTML writer does for text outside code.
func resolve(b []byte) []byte {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	return util.ResolveEntityNames(b)
}

func (w walker) literal(node ast.Node) []Span {
	lines := node.Lines()
	var out []Span
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(w.source)), "\r\n")
		out = appendText(out, line, false)
		if i < lines.Len()-1 {
			out = appendBreak(out, false)
		}
	}
	return out
}

func appendText(spans []Span, s string, bold bool) []Span {
	if s == "" {
		return spans
	}
	if n := len(spans); n > 0 && spans[n-1].Bold == bold && !spans[n-1].Break {
		spans[n-1].Text += s
		return spans
	}
	return append(spans, Span{Text: s, Bold: bold})
}

func appendBreak(spans []Span, bold bool) []Span {
	if n := len(spans); n > 0 && !spans[n-1].Break {
		spans[n-1].Break = true
		return spans
	}
	return append(spans, Span{Bold: bold, Break: true})
}

// HTML renders blocks using only p, strong, ul, ol, li and br. All text is escaped.
func HTML(blocks []Block) string {
	var sb strings.Builder
	writeBlocks(&sb, blocks)
	return sb.String()
}

// Render is HTML(Parse(src)).
func Render(src string) string {
	return HTML(Parse(src))
}

func writeBlocks(sb *strings.Builder, blocks []Block) {
	for _, b := range blocks {
		switch b.Kind {
		case Paragraph:
			sb.WriteString("<p>")
			writeSpans(sb, b.Spans)
			sb.WriteString("</p>")
		case List:
			tag := "ul"
			if b.Ordered {
				tag = "ol"
			}
			sb.WriteString("<" + tag)
			if b.Ordered && b.Start != 1 {
				sb.WriteString(` start="` + strconv.Itoa(b.Start) + `"`)
			}
			sb.WriteString(">")
			for _, item := range b.Items {
				sb.WriteString("<li>")
				writeSpans(sb, item.Spans)
				writeBlocks(sb, item.Children)
				sb.WriteString("</li>")
			}
			sb.WriteString("</" + tag + ">")
		}
	}
}

func writeSpans(sb *strings.Builder, spans []Span) {
	for i, s := range spans {
		if s.Text != "" {
			if s.Bold {
				sb.WriteString("<strong>" + html.EscapeString(s.Text) + "</strong>")
			} else {
				sb.WriteString(html.EscapeString(s.Text))
			}
		}
		if s.Break && i < len(spans)-1 {
			sb.WriteString("<br>")
		}
	}
}

// PlainText flattens blocks for terminals and logs: one line per paragraph
// line, list items prefixed with "• " or "N. ".
func PlainText(blocks []Block) string {
	var sb strings.Builder
	writePlain(&sb, blocks, "")
	return strings.TrimRight(sb.String(), "\n")
}

func writePlain(sb *strings.Builder, blocks []Block, indent string) {
	for _, b := range blocks {
		switch b.Kind {
		case Paragraph:
			sb.WriteString(indent + spansText(b.Spans, indent) + "\n")
		case List:
			for i, item := range b.Items {
				marker := "• "
				if b.Ordered {
					marker = strconv.Itoa(b.Start+i) + ". "
				}
				sb.WriteString(indent + marker + spansText(item.Spans, indent+"  ") + "\n")
				writePlain(sb, item.Children, indent+"  ")
			}
		}
	}
}

func spansText(spans []Span, indent string) string {
	var sb strings.Builder
	for i, s := range spans {
		sb.WriteString(s.Text)
		if s.Break && i < len(spans)-1 {
			sb.WriteString("\n" + indent)
		}
	}
	return sb.String()
}
