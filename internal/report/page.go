package report

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Exported variables.
var (
	ErrInvalidEncoding = errors.New("decoded URL is not valid UTF-8")
)

// Page is the read-only context of the page a selection happened on.
type Page struct {
	URL   string
	Title string
}

// DecodeURL percent-decodes every escape in raw, leaving '+' untouched.
// On a malformed escape or a non UTF-8 result it returns raw unchanged along
// with the error, so callers can log it and carry on with the raw URL.
func DecodeURL(raw string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw, fmt.Errorf("decode %q: %w", raw, err)
	}

	if !utf8.ValidString(decoded) {
		return raw, fmt.Errorf("decode %q: %w", raw, ErrInvalidEncoding)
	}

	return decoded, nil
}

// PrintContent concatenates the outer HTML of every body element of document.
func PrintContent(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	var b strings.Builder

	var renderErr error

	doc.Find("body").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		html, err := goquery.OuterHtml(s)
		if err != nil {
			renderErr = fmt.Errorf("render body: %w", err)
			return false
		}

		b.WriteString(html)

		return true
	})

	if renderErr != nil {
		return "", renderErr
	}

	return b.String(), nil
}

// DocumentTitle returns the trimmed text of the first title element, or "".
func DocumentTitle(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}
