package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors tried in order when looking for the article body. The
// first one yielding a substantial block of text wins.
var contentSelectors = []string{
	"main",
	"article",
	"[role='main']",
	".main-content",
	".article-body",
	".content",
	"#content",
	".post",
	".entry",
	"body",
}

// ExtractArticleText pulls the readable article text out of a page,
// dropping navigation, scripts and other chrome.
func ExtractArticleText(selection *goquery.Selection) string {
	doc := selection.Clone()

	// Remove unwanted elements
	doc.Find("script, style, nav, footer, header, aside, .nav, .navbar, .footer, .header, .sidebar, .advertisement, .ads, .skip-link").Remove()

	var content strings.Builder
	contentFound := false

	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 100 {
				content.WriteString(text)
				content.WriteString("\n\n")
				contentFound = true
			}
		})
		if contentFound {
			break
		}
	}

	if !contentFound {
		content.WriteString(doc.Find("body").Text())
	}

	return collapseBlankLines(content.String())
}

func collapseBlankLines(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
