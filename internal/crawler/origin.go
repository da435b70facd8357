package crawler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// OriginSelector picks the community a crawl starts from
type OriginSelector interface {
	SelectOrigin() (string, error)
}

// StaticOrigin always starts from the configured community
type StaticOrigin string

// SelectOrigin returns the normalized configured name
func (s StaticOrigin) SelectOrigin() (string, error) {
	name := NormalizeCommunity(string(s))
	if name == "" {
		return "", fmt.Errorf("origin community is empty")
	}
	return name, nil
}

// RandomOrigin asks the platform for a random community by following the
// redirect of its random endpoint
type RandomOrigin struct {
	collector *colly.Collector
	url       string
	landedOn  string
}

// NewRandomOrigin creates a selector that visits randomURL
func NewRandomOrigin(randomURL, userAgent string, timeout time.Duration) *RandomOrigin {
	o := &RandomOrigin{url: randomURL}

	o.collector = colly.NewCollector(colly.AllowURLRevisit())
	if userAgent != "" {
		o.collector.UserAgent = userAgent
	}
	if timeout > 0 {
		o.collector.SetRequestTimeout(timeout)
	}

	o.collector.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return fmt.Errorf("stopped after %d redirects", len(via))
		}
		o.landedOn = req.URL.String()
		return nil
	})

	o.collector.OnResponse(func(r *colly.Response) {
		if o.landedOn == "" {
			o.landedOn = r.Request.URL.String()
		}
	})

	return o
}

// SelectOrigin visits the random endpoint and reads the community from the final URL
func (o *RandomOrigin) SelectOrigin() (string, error) {
	o.landedOn = ""

	if err := o.collector.Visit(o.url); err != nil {
		return "", fmt.Errorf("failed to fetch random community: %w", err)
	}

	name, ok := CommunityFromURL(o.landedOn)
	if !ok {
		return "", fmt.Errorf("no community in %q", o.landedOn)
	}

	logrus.Infof("Random origin selected: %s", name)
	return name, nil
}
