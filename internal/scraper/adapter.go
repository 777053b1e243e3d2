package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/logger"
)

// Block is one candidate notice produced by an adapter.
type Block struct {
	Source  string `json:"source"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	Link    string `json:"link"`
	PageURL string `json:"page_url"`
	// DefaultBody is the source's own authority, if it has one.
	DefaultBody exam.Body `json:"default_body,omitempty"`
}

// Adapter produces candidate blocks from one source.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]Block, error)
}

// HTMLAdapter walks a Source's pages with goquery.
type HTMLAdapter struct {
	src     Source
	fetcher PageFetcher
	log     logger.Logger
}

// NewHTMLAdapter creates an adapter for src.
func NewHTMLAdapter(src Source, fetcher PageFetcher, log logger.Logger) *HTMLAdapter {
	return &HTMLAdapter{
		src:     src.withDefaults(),
		fetcher: fetcher,
		log:     log.With(logger.String("source", src.Name)),
	}
}

// Registry builds one adapter per source, in order.
func Registry(sources []Source, fetcher PageFetcher, log logger.Logger) []Adapter {
	adapters := make([]Adapter, 0, len(sources))
	for _, src := range sources {
		adapters = append(adapters, NewHTMLAdapter(src, fetcher, log))
	}
	return adapters
}

// Name returns the source name
func (a *HTMLAdapter) Name() string {
	return a.src.Name
}

// Fetch visits every page and collects candidate blocks.
// A failing page is skipped; the adapter fails only when every page failed.
func (a *HTMLAdapter) Fetch(ctx context.Context) ([]Block, error) {
	pages := a.src.PageURLs()
	var blocks []Block
	var firstErr error
	failed := 0
	seen := make(map[string]bool)
	details := 0

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return blocks, &exam.FetchError{Source: a.src.Name, URL: page, Err: err}
		}

		body, err := a.fetcher.Get(ctx, page)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			a.log.Error("page fetch failed", logger.String("url", page), logger.Err(err))
			continue
		}

		found := a.parsePage(ctx, body, page, seen, &details)
		a.log.Debug("page parsed", logger.String("url", page), logger.Int("blocks", len(found)))
		blocks = append(blocks, found...)
	}

	if len(pages) > 0 && failed == len(pages) {
		var fe *exam.FetchError
		if errors.As(firstErr, &fe) {
			if fe.Source == "" {
				fe.Source = a.src.Name
			}
			return nil, fe
		}
		return nil, &exam.FetchError{Source: a.src.Name, URL: pages[0], Err: firstErr}
	}
	return blocks, nil
}

func (a *HTMLAdapter) parsePage(ctx context.Context, body, pageURL string, seen map[string]bool, details *int) []Block {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		a.log.Warn("page is not parseable HTML", logger.String("url", pageURL), logger.Err(err))
		return nil
	}
	base, _ := url.Parse(pageURL)

	var blocks []Block
	doc.Find(a.src.Container).Each(func(_ int, sel *goquery.Selection) {
		title, href := a.titleAndLink(sel)
		if !a.accept(title) {
			return
		}
		link := resolveLink(base, href)

		dedupe := link
		if dedupe == "" {
			dedupe = title
		}
		if seen[dedupe] {
			return
		}
		seen[dedupe] = true

		text := containerText(sel)
		if a.src.FollowLinks && link != "" && *details < a.src.MaxDetailPages {
			*details++
			if detail, err := a.detailText(ctx, link); err != nil {
				a.log.Debug("detail page skipped", logger.String("url", link), logger.Err(err))
			} else if detail != "" {
				text = text + "\n" + detail
			}
		}

		blocks = append(blocks, Block{
			Source:      a.src.Name,
			Title:       title,
			Text:        text,
			Link:        link,
			PageURL:     pageURL,
			DefaultBody: a.src.DefaultBody,
		})
	})
	return blocks
}

// titleAndLink picks the notice title and its raw href from a container.
func (a *HTMLAdapter) titleAndLink(sel *goquery.Selection) (string, string) {
	var titleSel *goquery.Selection
	switch {
	case a.src.Title != "":
		titleSel = sel.Find(a.src.Title).First()
	case goquery.NodeName(sel) == "a":
		titleSel = sel
	default:
		titleSel = sel.Find("a").First()
	}

	title := ""
	if titleSel != nil && titleSel.Length() > 0 {
		title = collapseSpace(titleSel.Text())
	}

	href, ok := sel.Attr("href")
	if !ok && titleSel != nil {
		href, ok = titleSel.Attr("href")
	}
	if !ok {
		href, _ = sel.Find("a[href]").First().Attr("href")
	}
	return title, strings.TrimSpace(href)
}

// accept applies the length bounds and keyword filters to a title.
func (a *HTMLAdapter) accept(title string) bool {
	n := len([]rune(title))
	if n < a.src.MinTitle || n > a.src.MaxTitle {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range a.src.Skip {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	if len(a.src.Include) == 0 {
		return true
	}
	for _, kw := range a.src.Include {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// detailText fetches a notice page and returns its main text.
func (a *HTMLAdapter) detailText(ctx context.Context, link string) (string, error) {
	body, err := a.fetcher.Get(ctx, link)
	if err != nil {
		return "", err
	}
	return mainText(body, link)
}

// mainText extracts readable text with readability, falling back to the whole body text.
func mainText(body, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing detail URL: %w", err)
	}

	if article, err := readability.FromReader(strings.NewReader(body), parsed); err == nil && article.Content != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(spaceBlocks(article.Content)))
		if err == nil {
			if text := collapseLines(doc.Text()); text != "" {
				return text, nil
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing detail page: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return collapseLines(doc.Find("body").Text()), nil
}

// containerText returns the text around a container. A bare link usually holds only the
// title, so its parent row or list item is used instead. Table cells are joined with " | "
// so neighbouring cells never run together.
func containerText(sel *goquery.Selection) string {
	if goquery.NodeName(sel) == "a" && sel.Parent().Length() > 0 {
		sel = sel.Parent()
	}

	cells := sel.ChildrenFiltered("td, th")
	if cells.Length() == 0 {
		return collapseLines(sel.Text())
	}
	parts := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		if text := collapseSpace(cell.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " | ")
}

func resolveLink(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}
