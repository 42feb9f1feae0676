package datasource

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/pkg/models"
)

const defaultNewsFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// News implements HeadlineSource with a per-ticker RSS feed.
type News struct {
	feedURL string
	cache   *infra.Cache[[]models.NewsArticle]
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
}

// NewNews creates a headline source. opts.NewsFeedURL must contain one %s
// for the ticker.
func NewNews(opts Options) *News {
	feed := opts.NewsFeedURL
	if feed == "" {
		feed = defaultNewsFeedURL
	}
	return &News{
		feedURL: feed,
		cache:   infra.NewCache[[]models.NewsArticle](opts.CacheTTL),
		limiter: infra.NewRateLimiter(2), // conservative: 2 req/s
		parser:  gofeed.NewParser(),
	}
}

// Name returns the data source name.
func (n *News) Name() string { return "yahoo-rss" }

// GetHeadlines returns up to limit headlines for ticker, newest first.
func (n *News) GetHeadlines(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	cacheKey := fmt.Sprintf("%s:%d", ticker, limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached, nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feedURL := fmt.Sprintf(n.feedURL, url.QueryEscape(ticker))
	feed, err := n.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "parse RSS for %s", ticker)
	}

	source := feed.Title
	if source == "" {
		source = "Yahoo Finance"
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Source:  source,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	n.cache.Set(cacheKey, articles)
	return articles, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
