package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// PageFetcher retrieves one page of records
type PageFetcher interface {
	Fetch(pageURL string) (*Page, error)
}

// RecordSource yields every record of a community inside a time window
type RecordSource interface {
	Accumulate(ctx context.Context, community string, minUTC, maxUTC int64) ([]Record, error)
}

var _ RecordSource = (*Accumulator)(nil)

// Accumulator walks all pages of a community's time window
type Accumulator struct {
	fetcher PageFetcher
	baseURL string
}

// NewAccumulator creates an accumulator issuing searches against baseURL
func NewAccumulator(fetcher PageFetcher, baseURL string) *Accumulator {
	return &Accumulator{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// InitialURL builds the first search page for a community
func (a *Accumulator) InitialURL(community string, minUTC int64) string {
	return fmt.Sprintf("%s/search/comment/?subreddit=%s&after=%d", a.baseURL, url.QueryEscape(community), minUTC)
}

// Accumulate concatenates the records of every page from minUTC on. It stops
// when the API announces no further page or once the cursor reaches maxUTC;
// the page that crosses maxUTC is kept. Any fetch failure discards the whole
// result.
func (a *Accumulator) Accumulate(ctx context.Context, community string, minUTC, maxUTC int64) ([]Record, error) {
	var records []Record
	fetched := make(map[string]struct{})
	pageURL := a.InitialURL(community, minUTC)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fetched[pageURL] = struct{}{}
		page, err := a.fetcher.Fetch(pageURL)
		if err != nil && !errors.Is(err, ErrMalformedPagination) {
			return nil, err
		}
		if page == nil {
			page = &Page{}
		}

		records = append(records, page.Records...)

		if err != nil {
			logrus.Warnf("Stopping pagination for %s: %v", community, err)
			return records, nil
		}

		if !page.HasNext() {
			return records, nil
		}

		if page.Cursor >= maxUTC {
			logrus.Debugf("Window exhausted for %s at cursor %d", community, page.Cursor)
			return records, nil
		}

		if _, seen := fetched[page.NextPage]; seen {
			logrus.Warnf("Stopping pagination for %s: page %s already fetched", community, page.NextPage)
			return records, nil
		}

		pageURL = page.NextPage
	}
}
