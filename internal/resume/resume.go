// Package resume turns a candidate's resume reference into plain text.
// A reference is either the resume text itself or an http(s) URL pointing at an
// HTML, PDF or plain text document.
package resume

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 20 * time.Second
	userAgent      = "ups-ranker/1.0"
	maxBodyBytes   = 2 << 20
)

// ErrEmpty is returned when a reference resolves to no text.
var ErrEmpty = errors.New("resume is empty")

var spaceRe = regexp.MustCompile(`[ \t\f\v]+`)
var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// Fetcher resolves resume references.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewFetcherWithClient(&http.Client{Timeout: timeout}, logger)
}

func NewFetcherWithClient(client *http.Client, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, logger: logger}
}

// IsURL reports whether ref is an absolute http(s) URL.
func IsURL(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Resolve returns the resume text for ref. URLs are downloaded and HTML is reduced to text.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmpty
	}
	if !IsURL(ref) {
		return ref, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", fmt.Errorf("build resume request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch resume %s: %w", ref, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch resume %s: HTTP status %d", ref, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read resume %s: %w", ref, err)
	}

	contentType := resp.Header.Get("Content-Type")
	text := string(body)
	switch {
	case isPDF(contentType, body):
		text, err = ExtractPDFText(body)
		if err != nil {
			return "", fmt.Errorf("resume %s: %w", ref, err)
		}
	case isHTML(contentType, text):
		text, err = ExtractText(text)
		if err != nil {
			return "", err
		}
	}

	text = cleanWhitespace(text)
	if text == "" {
		return "", ErrEmpty
	}

	f.logger.Debug("resume fetched", zap.String("url", ref), zap.Int("length", len(text)))
	return text, nil
}

// ExtractText returns the visible text of an HTML document.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse resume html: %w", err)
	}

	doc.Find("script, style, noscript, nav, footer").Remove()

	var lines []string
	doc.Find("body").Find("h1, h2, h3, h4, p, li, td, pre").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li").Length() > 0 {
			return
		}
		if t := strings.TrimSpace(s.Text()); t != "" {
			lines = append(lines, t)
		}
	})
	if len(lines) == 0 {
		return cleanWhitespace(doc.Find("body").Text()), nil
	}
	return cleanWhitespace(strings.Join(lines, "\n")), nil
}

// ExtractPDFText returns the plain text of every page of a PDF document.
func ExtractPDFText(data []byte) (text string, err error) {
	// The parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse resume pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse resume pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract resume pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("extract resume pdf text: %w", err)
	}
	return buf.String(), nil
}

func isPDF(contentType string, body []byte) bool {
	return strings.Contains(strings.ToLower(contentType), "application/pdf") || bytes.HasPrefix(body, []byte("%PDF-"))
}

func isHTML(contentType, body string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(body))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func cleanWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
