// Package jobpost fetches job postings and judges whether extracted text is usable.
package jobpost

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; MockInterviewBot/1.0)"
	maxBodyBytes     = 4 << 20
	maxContentChars  = 15000
)

var contentSelectors = []string{
	".job-description",
	".job-content",
	"#job-description",
	"#job-content",
	".posting-content",
	".job-details",
	".description__text",
	"[data-testid='job-description']",
	"[data-automation='jobAdDetails']",
	"main",
	"article",
	".content",
	"#content",
}

const noiseSelectors = "nav, footer, header, script, style, noscript, iframe, form, svg, " +
	".ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup, .apply-button, .share"

// Scraper downloads a job page and reduces it to its posting text.
type Scraper struct {
	client    *http.Client
	userAgent string
}

// NewScraper uses client as given; a nil client gets one that only dials public addresses.
func NewScraper(client *http.Client) *Scraper {
	if client == nil {
		client = publicOnlyClient(defaultTimeout)
	}
	return &Scraper{client: client, userAgent: defaultUserAgent}
}

// Fetch never fails: when the page cannot be retrieved or parsed it returns PlaceholderContent
// and ok=false, leaving quality judgement to Validate.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (content string, ok bool, err error) {
	text, err := s.fetch(ctx, rawURL)
	if err != nil || strings.TrimSpace(text) == "" {
		return PlaceholderContent(rawURL), false, err
	}
	return text, true, nil
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid job url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch job page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch job page: HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read job page: %w", err)
	}
	return ExtractText(string(body))
}

// ExtractText strips page chrome and returns the best-matching posting body.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(noiseSelectors).Remove()

	var main *goquery.Selection
	for _, sel := range contentSelectors {
		if found := doc.Find(sel); found.Length() > 0 && strings.TrimSpace(found.First().Text()) != "" {
			main = found.First()
			break
		}
	}
	if main == nil {
		main = doc.Find("body")
	}

	text := cleanWhitespace(main.Text())
	if r := []rune(text); len(r) > maxContentChars {
		text = string(r[:maxContentChars])
	}
	return text, nil
}

// PlaceholderContent is stored when a page could not be scraped.
func PlaceholderContent(rawURL string) string {
	return "Unable to extract content from " + rawURL + ". Paste the posting text manually."
}

func cleanWhitespace(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
