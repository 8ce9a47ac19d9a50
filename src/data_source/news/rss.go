package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"

	"github.com/juju/clock"
)

const (
	defaultFeedURL = "https://news.google.com/rss"
	timeLayout     = "2006-01-02 15:04:05"
)

// RSSSource returns the first MaxItems headlines of an RSS 2.0 feed.
type RSSSource struct {
	SourceConfig models.MSourceConfig
	Network      interfaces.INetworkManager
	Clock        clock.Clock
	Logger       *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRSSSource(sourceCfg models.MSourceConfig, netMgr interfaces.INetworkManager, clk clock.Clock) *RSSSource {
	if sourceCfg.URL == "" {
		sourceCfg.URL = defaultFeedURL
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &RSSSource{
		SourceConfig: sourceCfg,
		Network:      netMgr,
		Clock:        clk,
		Logger:       logger.NewLogger(nil, "RSSSource-"+sourceCfg.Name),
	}
}

func (s *RSSSource) ID() string              { return s.SourceConfig.Name }
func (s *RSSSource) Kind() models.SourceKind { return models.KindNews }

// -----------------------------------------------------------------------------

func (s *RSSSource) Fetch(ctx context.Context) (models.Payload, error) {
	body, err := s.Network.Get(ctx, s.SourceConfig.URL, nil)
	if err != nil {
		return nil, err
	}
	items, err := ParseFeed(s.ID(), body, s.SourceConfig.MaxItems, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("Fetched %d headlines from %s", len(items), s.SourceConfig.URL)
	return items, nil
}

// -----------------------------------------------------------------------------

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			Link    string `xml:"link"`
			PubDate string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

var pubDateLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822}

// ParseFeed keeps feed order. Items without a title or link are skipped; an
// unparseable pubDate falls back to fetchedAt.
func ParseFeed(sourceID string, data []byte, maxItems int, fetchedAt time.Time) (models.NewsPayload, error) {
	var doc rssDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, helpers.NewParseError(sourceID, fmt.Errorf("rss: %w", err))
	}

	out := models.NewsPayload{}
	for _, item := range doc.Channel.Items {
		if maxItems > 0 && len(out) >= maxItems {
			break
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		out = append(out, models.MNewsItem{
			Title: title,
			Link:  link,
			Time:  publishedAt(item.PubDate, fetchedAt).UTC().Format(timeLayout),
		})
	}
	return out, nil
}

func publishedAt(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return fallback
}
