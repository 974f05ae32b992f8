// Package content derives card summaries from post bodies that may contain HTML.
package content

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/net/html"
)

const (
	// ExcerptLength is the number of user-perceived characters kept in an excerpt.
	ExcerptLength = 150
	// CharsPerMinute approximates reading speed for ReadingMinutes.
	CharsPerMinute = 1000
)

// Summary is the short form of a post shown in feeds.
type Summary struct {
	Excerpt        string `json:"excerpt"`
	CoverImage     string `json:"cover_image,omitempty"`
	ReadingMinutes int    `json:"reading_minutes"`
}

// Summarize builds the feed summary for a post body. fallbackImage is used
// as the cover when the body embeds no image.
func Summarize(body, fallbackImage string) Summary {
	doc := parse(body)
	return Summary{
		Excerpt:        excerpt(doc),
		CoverImage:     coverImage(doc, fallbackImage),
		ReadingMinutes: ReadingMinutes(body),
	}
}

// Excerpt strips markup from body and truncates the remaining text.
func Excerpt(body string) string {
	return excerpt(parse(body))
}

// CoverImage returns the src of the first image in body, or fallback.
func CoverImage(body, fallback string) string {
	return coverImage(parse(body), fallback)
}

// ReadingMinutes estimates reading time, never less than one minute.
func ReadingMinutes(body string) int {
	n := utf8.RuneCountInString(body)
	minutes := (n + CharsPerMinute - 1) / CharsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

func parse(body string) *html.Node {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		// html.Parse only fails on reader errors.
		return &html.Node{Type: html.TextNode, Data: body}
	}
	return doc
}

func excerpt(doc *html.Node) string {
	var text strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "img":
				return
			case "p", "div", "br", "li", "tr", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6":
				text.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	plain := strings.Join(strings.Fields(text.String()), " ")
	return truncate(plain, ExcerptLength)
}

// truncate keeps the first limit grapheme clusters of s and appends an
// ellipsis only when something was cut.
func truncate(s string, limit int) string {
	if uniseg.GraphemeClusterCount(s) <= limit {
		return s
	}
	var out strings.Builder
	g := uniseg.NewGraphemes(s)
	for i := 0; i < limit && g.Next(); i++ {
		out.WriteString(g.Str())
	}
	return strings.TrimRight(out.String(), " ") + "..."
}

func coverImage(doc *html.Node, fallback string) string {
	var src string
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, attr := range n.Attr {
				if attr.Key == "src" && strings.TrimSpace(attr.Val) != "" {
					src = strings.TrimSpace(attr.Val)
					return
				}
			}
		}
		for c := n.FirstChild; c != nil && src == ""; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if src == "" {
		return fallback
	}
	return src
}
