package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Payload is the tagged variant carried by a snapshot. Each source kind has
// exactly one payload shape, validated at the adapter boundary.
// -----------------------------------------------------------------------------

type Payload interface {
	Kind() SourceKind

	// Validate rejects malformed records before they reach the cache.
	Validate() error

	// Equal is an exact field comparison, timestamps are not part of it.
	Equal(other Payload) bool

	// Reconcile folds the previous good payload into a fresh one.
	Reconcile(prev Payload) Payload
}

// -----------------------------------------------------------------------------
// Quotes
// -----------------------------------------------------------------------------

type MQuote struct {
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
}

type QuotesPayload map[string]MQuote

func (p QuotesPayload) Kind() SourceKind { return KindStocks }

func (p QuotesPayload) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("quotes payload is empty")
	}
	for sym, q := range p {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("quote with empty symbol")
		}
		if q.Price <= 0 || math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
			return fmt.Errorf("invalid price %v for %s", q.Price, sym)
		}
		if math.IsNaN(q.Change) || math.IsInf(q.Change, 0) {
			return fmt.Errorf("invalid change %v for %s", q.Change, sym)
		}
	}
	return nil
}

func (p QuotesPayload) Equal(other Payload) bool {
	o, ok := other.(QuotesPayload)
	if !ok || len(o) != len(p) {
		return false
	}
	for sym, q := range p {
		if oq, ok := o[sym]; !ok || oq != q {
			return false
		}
	}
	return true
}

// Reconcile derives change against the previous price of each symbol and
// carries forward symbols the fresh fetch did not return. An unchanged price
// keeps the previous quote, so change always refers to the last price move.
func (p QuotesPayload) Reconcile(prev Payload) Payload {
	out := make(QuotesPayload, len(p))
	old, _ := prev.(QuotesPayload)
	for sym, q := range old {
		out[sym] = q
	}
	for sym, q := range p {
		price := decimal.NewFromFloat(q.Price).Round(2)
		change := decimal.NewFromFloat(q.Change).Round(2)
		if prevQ, ok := old[sym]; ok {
			prevPrice := decimal.NewFromFloat(prevQ.Price).Round(2)
			if price.Equal(prevPrice) {
				continue
			}
			change = price.Sub(prevPrice)
		}
		out[sym] = MQuote{
			Price:  price.InexactFloat64(),
			Change: change.InexactFloat64(),
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Weather
// -----------------------------------------------------------------------------

type MWeather struct {
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

type WeatherPayload map[string]MWeather

func (p WeatherPayload) Kind() SourceKind { return KindWeather }

func (p WeatherPayload) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("weather payload is empty")
	}
	for city, w := range p {
		if strings.TrimSpace(city) == "" {
			return fmt.Errorf("weather report with empty city")
		}
		if math.IsNaN(w.Temperature) || math.IsInf(w.Temperature, 0) {
			return fmt.Errorf("invalid temperature for %s", city)
		}
		if w.Humidity < 0 || w.Humidity > 100 {
			return fmt.Errorf("humidity %v out of range for %s", w.Humidity, city)
		}
	}
	return nil
}

func (p WeatherPayload) Equal(other Payload) bool {
	o, ok := other.(WeatherPayload)
	if !ok || len(o) != len(p) {
		return false
	}
	for city, w := range p {
		if ow, ok := o[city]; !ok || ow != w {
			return false
		}
	}
	return true
}

// Reconcile keeps the last known report for cities missing from a partial fetch.
func (p WeatherPayload) Reconcile(prev Payload) Payload {
	out := make(WeatherPayload, len(p))
	if old, ok := prev.(WeatherPayload); ok {
		for city, w := range old {
			out[city] = w
		}
	}
	for city, w := range p {
		out[city] = w
	}
	return out
}

// -----------------------------------------------------------------------------
// News
// -----------------------------------------------------------------------------

type MNewsItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	Time  string `json:"time"`
}

type NewsPayload []MNewsItem

func (p NewsPayload) Kind() SourceKind { return KindNews }

func (p NewsPayload) Validate() error {
	for i, item := range p {
		if strings.TrimSpace(item.Title) == "" {
			return fmt.Errorf("news item %d has no title", i)
		}
		if strings.TrimSpace(item.Link) == "" {
			return fmt.Errorf("news item %d has no link", i)
		}
	}
	return nil
}

func (p NewsPayload) Equal(other Payload) bool {
	o, ok := other.(NewsPayload)
	if !ok || len(o) != len(p) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Reconcile returns a copy; the headline list is always replaced as a whole.
func (p NewsPayload) Reconcile(_ Payload) Payload {
	out := make(NewsPayload, len(p))
	copy(out, p)
	return out
}
