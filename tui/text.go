package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
	gohtml "golang.org/x/net/html"
)

// htmlToText flattens a server-rendered comment body into plain lines.
// Paragraphs become blank-line separated, links keep their target.
func htmlToText(raw string) string {
	if raw == "" {
		return ""
	}
	root, err := gohtml.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var sb strings.Builder
	var extract func(*gohtml.Node)
	extract = func(n *gohtml.Node) {
		switch n.Type {
		case gohtml.TextNode:
			sb.WriteString(n.Data)
			return
		case gohtml.ElementNode:
			switch n.Data {
			case "p", "blockquote", "ul", "ol", "pre":
				if sb.Len() > 0 {
					sb.WriteString(strings.Repeat("\n", 2-trailingNewlines(sb.String())))
				}
			case "br":
				sb.WriteString("\n")
				return
			case "li":
				if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
					sb.WriteString("\n")
				}
				sb.WriteString("• ")
			case "a":
				text := textContent(n)
				href := attr(n, "href")
				sb.WriteString(text)
				if href != "" && href != text {
					sb.WriteString(" [" + href + "]")
				}
				return
			case "code":
				sb.WriteString("`" + textContent(n) + "`")
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(root)

	return strings.TrimSpace(sb.String())
}

func trailingNewlines(s string) int {
	n := 0
	for n < len(s) && s[len(s)-1-n] == '\n' {
		n++
	}
	return min(n, 2)
}

func textContent(n *gohtml.Node) string {
	if n.Type == gohtml.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func attr(n *gohtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// wrapByWidth breaks s into lines no wider than width terminal cells.
// Words longer than a line are split.
func wrapByWidth(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		var line string
		for _, w := range words {
			for runewidth.StringWidth(w) > width {
				if line != "" {
					lines = append(lines, line)
					line = ""
				}
				head := runewidth.Truncate(w, width, "")
				if head == "" {
					head = string([]rune(w)[:1])
				}
				lines = append(lines, head)
				w = w[len(head):]
			}
			if w == "" {
				continue
			}
			switch {
			case line == "":
				line = w
			case runewidth.StringWidth(line)+1+runewidth.StringWidth(w) <= width:
				line += " " + w
			default:
				lines = append(lines, line)
				line = w
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
