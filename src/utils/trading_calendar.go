package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// micBySuffix maps a Yahoo-style ticker suffix to its exchange MIC (ISO 10383).
// Symbols without a known suffix trade on NYSE.
var micBySuffix = []struct {
	suffix string
	mic    string
}{
	{".L", "xlon"},
	{".PA", "xpar"},
	{".DE", "xfra"},
	{".AS", "xams"},
	{".MI", "xmil"},
	{".MC", "xmad"},
	{".SW", "xswx"},
	{".TO", "xtse"},
	{".T", "xtks"},
	{".HK", "xhkg"},
	{".AX", "xasx"},
	{".KS", "xkrx"},
	{".SS", "xshg"},
	{".SZ", "xshe"},
}

// -----------------------------------------------------------------------------

// TradingCalendar answers whether one exchange is open at a given instant.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// MICForSymbol resolves the exchange a symbol trades on.
func MICForSymbol(symbol string) string {
	upper := strings.ToUpper(symbol)
	for _, m := range micBySuffix {
		if strings.HasSuffix(upper, m.suffix) {
			return m.mic
		}
	}
	return "xnys"
}

// -----------------------------------------------------------------------------

// GetCalendar loads the calendar for a symbol's exchange. When scmhub/calendar
// does not know the MIC, NYSE regular hours (Mon-Fri 09:30-16:00 New York) apply.
func GetCalendar(symbol string) *TradingCalendar {
	mic := MICForSymbol(symbol)
	if cal := calendar.GetCalendar(mic); cal != nil {
		return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
	}

	nyLoc, err := time.LoadLocation("America/New_York")
	if err != nil {
		nyLoc = time.UTC
	}
	return &TradingCalendar{MIC: mic, Fallback: true, Timezone: nyLoc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		minutes := t.Hour()*60 + t.Minute()
		return minutes >= 9*60+30 && minutes < 16*60
	}

	return tc.Calendar.IsOpen(t)
}
