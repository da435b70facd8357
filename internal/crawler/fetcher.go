package crawler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/ref-weaver/internal/metrics"
)

// Context keys used to hand results from colly callbacks back to Fetch
const (
	bodyKey   = "body"
	statusKey = "status"
)

// Locates the cursor timestamp inside a next-page URL
var nextCursorRegex = regexp.MustCompile(`after=(\d+)`)

// Record is one comment returned by the search API
type Record struct {
	Author     string
	Body       string
	CreatedUTC int64
	ID         string
}

// Page is one decoded page of the search API
type Page struct {
	Records  []Record
	NextPage string
	Cursor   int64
}

// HasNext reports whether the API announced a following page
func (p *Page) HasNext() bool {
	return p.NextPage != ""
}

// envelope mirrors the fields of the API response we consume.
// Everything else in the payload is ignored.
type envelope struct {
	Data     []wireRecord `json:"data"`
	Metadata struct {
		NextPage string `json:"next_page"`
	} `json:"metadata"`
}

type wireRecord struct {
	Author     string      `json:"author"`
	Body       string      `json:"body"`
	CreatedUTC json.Number `json:"created_utc"`
	ID         string      `json:"id"`
}

// FetcherConfig tunes the HTTP side of a Fetcher
type FetcherConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	RequestDelay   time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	Clock          clock.Clock
	Tracker        *metrics.Tracker
}

// Fetcher retrieves single pages of the cursor-paginated search API
type Fetcher struct {
	collector     *colly.Collector
	clock         clock.Clock
	tracker       *metrics.Tracker
	retryAttempts int
	retryDelay    time.Duration
}

// NewFetcher creates a synchronous colly-backed page fetcher
func NewFetcher(cfg FetcherConfig) *Fetcher {
	f := &Fetcher{
		clock:         cfg.Clock,
		tracker:       cfg.Tracker,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
	}
	if f.clock == nil {
		f.clock = clock.WallClock
	}
	if f.tracker == nil {
		f.tracker = metrics.NewTracker()
	}

	f.collector = colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.MaxDepth(0),
	)
	if cfg.UserAgent != "" {
		f.collector.UserAgent = cfg.UserAgent
	}
	if cfg.RequestTimeout > 0 {
		f.collector.SetRequestTimeout(cfg.RequestTimeout)
	}
	if cfg.RequestDelay > 0 {
		if err := f.collector.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			Delay:       cfg.RequestDelay,
		}); err != nil {
			logrus.Warnf("Failed to apply request delay: %v", err)
		}
	}

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(bodyKey, r.Body)
		r.Ctx.Put(statusKey, r.StatusCode)
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put(statusKey, r.StatusCode)
	})

	return f
}

// Fetch issues one GET for pageURL and decodes the result. A rate-limited
// request is retried with exponential backoff before giving up.
// When the next-page URL carries no cursor the decoded page is returned
// together with an error matching ErrMalformedPagination.
func (f *Fetcher) Fetch(pageURL string) (*Page, error) {
	delay := f.retryDelay
	for attempt := 0; ; attempt++ {
		page, err := f.fetchOnce(pageURL)
		if err == nil || !errors.Is(err, ErrRateLimited) || attempt >= f.retryAttempts {
			return page, err
		}

		logrus.Warnf("Rate limited on %s, retrying in %v (attempt %d/%d)", pageURL, delay, attempt+1, f.retryAttempts)
		if delay > 0 {
			<-f.clock.After(delay)
		}
		delay *= 2
	}
}

func (f *Fetcher) fetchOnce(pageURL string) (*Page, error) {
	ctx := colly.NewContext()

	start := f.clock.Now()
	err := f.collector.Request(http.MethodGet, pageURL, nil, ctx, nil)
	f.tracker.RecordFetchTime(f.clock.Now().Sub(start))

	status, _ := ctx.GetAny(statusKey).(int)
	if err != nil {
		f.tracker.IncrementPagesFailed()
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: err}
	}

	body, _ := ctx.GetAny(bodyKey).([]byte)
	page, err := decodePage(body)
	if err != nil && !errors.Is(err, ErrMalformedPagination) {
		f.tracker.IncrementPagesFailed()
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: err}
	}

	f.tracker.IncrementPagesFetched()
	f.tracker.AddRecords(len(page.Records))
	logrus.Debugf("Fetched %s: %d records, next=%q", pageURL, len(page.Records), page.NextPage)

	return page, err
}

// decodePage turns a response body into a Page. An empty or absent data
// array yields an empty page without a next-page URL.
func decodePage(body []byte) (*Page, error) {
	var env envelope
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(env.Data) == 0 {
		return &Page{}, nil
	}

	page := &Page{Records: make([]Record, 0, len(env.Data))}
	for _, wr := range env.Data {
		created, err := parseEpoch(wr.CreatedUTC)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", wr.ID, err)
		}
		page.Records = append(page.Records, Record{
			Author:     wr.Author,
			Body:       wr.Body,
			CreatedUTC: created,
			ID:         wr.ID,
		})
	}

	if env.Metadata.NextPage == "" {
		return page, nil
	}

	page.NextPage = env.Metadata.NextPage
	cursor, err := ParseCursor(page.NextPage)
	if err != nil {
		return page, err
	}
	page.Cursor = cursor

	return page, nil
}

// ParseCursor extracts the after=<digits> timestamp from a next-page URL
func ParseCursor(nextPage string) (int64, error) {
	match := nextCursorRegex.FindStringSubmatch(nextPage)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedPagination, nextPage)
	}

	cursor, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedPagination, nextPage, err)
	}
	return cursor, nil
}

// parseEpoch accepts integer and fractional second timestamps
func parseEpoch(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	v, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("invalid created_utc %q", n)
	}
	return int64(v), nil
}
