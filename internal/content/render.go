package content

import (
	"fmt"
	"html"
	"strings"
)

// Node is one rendered block: the kind it came from plus an HTML fragment
// with all text escaped.
type Node struct {
	Kind Kind   `json:"kind"`
	HTML string `json:"html"`
}

// Render maps an ordered block sequence to an ordered node sequence. It is a
// pure function: no block, however malformed, makes it fail.
func Render(blocks []Block) []Node {
	nodes := make([]Node, 0, len(blocks))
	for _, b := range blocks {
		nodes = append(nodes, Node{Kind: b.Kind(), HTML: renderBlock(b)})
	}
	return nodes
}

func renderBlock(b Block) string {
	switch v := b.(type) {
	case HeaderBlock:
		level := clampLevel(v.Level)
		return fmt.Sprintf("<h%d>%s</h%d>", level, html.EscapeString(v.Text), level)
	case ParagraphBlock:
		return fmt.Sprintf("<p>%s</p>", html.EscapeString(v.Text))
	case ListBlock:
		tag := "ul"
		if v.Style == ListOrdered {
			tag = "ol"
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "<%s>", tag)
		for _, item := range v.Items {
			fmt.Fprintf(&sb, "<li>%s</li>", html.EscapeString(item))
		}
		fmt.Fprintf(&sb, "</%s>", tag)
		return sb.String()
	case ImageBlock:
		var sb strings.Builder
		sb.WriteString("<figure>")
		fmt.Fprintf(&sb, `<img src="%s" alt="%s">`, html.EscapeString(v.URL), html.EscapeString(v.Caption))
		if v.Caption != "" {
			fmt.Fprintf(&sb, "<figcaption>%s</figcaption>", html.EscapeString(v.Caption))
		}
		sb.WriteString("</figure>")
		return sb.String()
	case QuoteBlock:
		var sb strings.Builder
		sb.WriteString("<blockquote>")
		fmt.Fprintf(&sb, "<p>%s</p>", html.EscapeString(v.Text))
		if v.Caption != "" {
			fmt.Fprintf(&sb, "<footer>%s</footer>", html.EscapeString(v.Caption))
		}
		sb.WriteString("</blockquote>")
		return sb.String()
	case UnknownBlock:
		return fmt.Sprintf("<p>[Unsupported block type: %s]</p>", html.EscapeString(v.Type))
	default:
		return ""
	}
}
