// Package marketplace fetches product listings over HTTP and adapts them to
// pipeline input: seller text assembled from the scraped declarations plus
// downloaded gallery images.
package marketplace

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/resilience"
)

const pageMaxBytes = 4 << 20
const imageMaxBytes = 12 << 20

// Client fetches listings from a marketplace with rate limiting and
// retry on transient failures. One Client is safe for concurrent use.
type Client struct {
	http      *http.Client
	imageHTTP *http.Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	userAgent string
	maxImages int
}

// New creates a Client from marketplace configuration.
func New(cfg config.MarketplaceConfig) *Client {
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 0.5
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	imageTimeout := time.Duration(cfg.ImageTimeout) * time.Second
	if imageTimeout <= 0 {
		imageTimeout = 15 * time.Second
	}
	maxImages := cfg.MaxImages
	if maxImages <= 0 {
		maxImages = 8
	}
	transport := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		http:      &http.Client{Timeout: timeout, Transport: transport},
		imageHTTP: &http.Client{Timeout: imageTimeout, Transport: transport},
		limiter:   rate.NewLimiter(rate.Limit(perSec), 1),
		retry:     resilience.FromMarketplaceConfig(cfg),
		userAgent: cfg.UserAgent,
		maxImages: maxImages,
	}
}

// Fetch downloads one product page and its gallery images and returns the
// assembled listing. Image download failures degrade to fewer images; an
// unrecognizable page is an error.
func (c *Client) Fetch(ctx context.Context, listingURL string) (model.ListingInput, error) {
	log := zap.L().With(zap.String("url", listingURL))

	if err := c.limiter.Wait(ctx); err != nil {
		return model.ListingInput{}, eris.Wrap(err, "marketplace: rate limit wait")
	}

	body, err := resilience.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.http, listingURL, pageMaxBytes)
	})
	if err != nil {
		return model.ListingInput{}, eris.Wrapf(err, "marketplace: fetch %s", listingURL)
	}

	page := parseListingPage(body)
	if page.empty() {
		return model.ListingInput{}, eris.Errorf("marketplace: no listing content at %s", listingURL)
	}

	listing := model.ListingInput{
		URL:        listingURL,
		Title:      page.Title,
		Category:   page.category(),
		SellerText: page.sellerText(),
	}

	urls := page.ImageURLs
	if len(urls) > c.maxImages {
		urls = urls[:c.maxImages]
	}
	for i, u := range urls {
		img := model.ImageBlob{ID: fmt.Sprintf("img-%d", i+1), SourceURL: u}
		data, imgErr := resilience.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
			return c.get(ctx, c.imageHTTP, u, imageMaxBytes)
		})
		if imgErr != nil {
			if ctx.Err() != nil {
				return model.ListingInput{}, eris.Wrap(imgErr, "marketplace: download image")
			}
			log.Warn("marketplace: image download failed",
				zap.String("image_url", u),
				zap.Error(imgErr),
			)
			continue
		}
		img.Data = data
		listing.Images = append(listing.Images, img)
	}

	log.Info("marketplace: listing fetched",
		zap.String("category", listing.Category),
		zap.Int("images", len(listing.Images)),
	)
	return listing, nil
}

func (c *Client) get(ctx context.Context, client *http.Client, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "marketplace: create request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "marketplace: request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		// The retry layer decides from the code whether to try again.
		return nil, &resilience.StatusError{Code: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, eris.Wrap(err, "marketplace: read body")
	}
	return body, nil
}
