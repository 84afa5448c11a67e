package model

import (
	"fmt"
	"time"

	"github.com/moatasem-alhilali/wadash/internal/status"
	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// SessionCounts groups sessions by status for the dashboard header.
type SessionCounts struct {
	Total        int
	Ready        int
	Connecting   int
	Disconnected int
}

// Counts tallies sessions. qr and initializing count as connecting.
func Counts(sessions []wire.Session) SessionCounts {
	c := SessionCounts{Total: len(sessions)}
	for _, s := range sessions {
		switch {
		case s.Status == wire.StatusReady:
			c.Ready++
		case status.Connecting(s.Status):
			c.Connecting++
		case s.Status == wire.StatusDisconnected:
			c.Disconnected++
		}
	}
	return c
}

// HealthScore maps a backend risk level to a 0-100 score.
func HealthScore(risk string) int {
	switch risk {
	case "low":
		return 90
	case "medium":
		return 70
	case "high":
		return 40
	case "critical":
		return 10
	}
	return 50
}

// StatsHealthScore scores a stats payload. A missing risk level reads as low.
func StatsHealthScore(st wire.SessionStats) int {
	risk := "low"
	if st.SessionHealth != nil && st.SessionHealth.RiskLevel != "" {
		risk = st.SessionHealth.RiskLevel
	}
	return HealthScore(risk)
}

// Band is a three-step severity used for colouring.
type Band int

const (
	BandGood Band = iota
	BandWarn
	BandBad
)

func (b Band) String() string {
	switch b {
	case BandGood:
		return "good"
	case BandWarn:
		return "warn"
	}
	return "bad"
}

// HealthBand classifies a health score.
func HealthBand(score int) Band {
	switch {
	case score >= 80:
		return BandGood
	case score >= 60:
		return BandWarn
	}
	return BandBad
}

// UsageLevel is a used/limit ratio prepared for a progress bar.
type UsageLevel struct {
	Used    int
	Limit   int
	Percent float64
	Band    Band
}

// Usage computes the fill of a limit bar. Percent is capped at 100; the band
// turns warn above 60% and bad above 80%. A non-positive limit reads as full.
func Usage(used, limit int) UsageLevel {
	u := UsageLevel{Used: used, Limit: limit}
	ratio, pct := 1.0, 100.0
	if limit > 0 {
		ratio = float64(used) / float64(limit)
		pct = float64(used) * 100 / float64(limit)
	}
	u.Percent = min(pct, 100)
	if u.Percent < 0 {
		u.Percent = 0
	}
	switch {
	case ratio > 0.8:
		u.Band = BandBad
	case ratio > 0.6:
		u.Band = BandWarn
	default:
		u.Band = BandGood
	}
	return u
}

// Pager tracks the current page of a paginated listing.
type Pager struct {
	Page  int
	Total int
}

// NewPager starts on page 1 of 1.
func NewPager() Pager {
	return Pager{Page: 1, Total: 1}
}

// SetTotal records the backend's page count and clamps the current page.
func (p *Pager) SetTotal(total int) {
	p.Total = max(total, 1)
	p.clamp()
}

// Next advances one page. It reports whether the page changed.
func (p *Pager) Next() bool {
	if p.Page >= p.Total {
		return false
	}
	p.Page++
	return true
}

// Prev goes back one page. It reports whether the page changed.
func (p *Pager) Prev() bool {
	if p.Page <= 1 {
		return false
	}
	p.Page--
	return true
}

// Reset returns to page 1.
func (p *Pager) Reset() {
	p.Page = 1
}

func (p *Pager) clamp() {
	if p.Total < 1 {
		p.Total = 1
	}
	p.Page = min(max(p.Page, 1), p.Total)
}

func (p Pager) String() string {
	return fmt.Sprintf("Page %d of %d", p.Page, p.Total)
}

// TimeAgo renders the age of t relative to now.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	mins := int(d / time.Minute)
	hours := mins / 60
	days := hours / 24
	switch {
	case days > 0:
		return fmt.Sprintf("%dd ago", days)
	case hours > 0:
		return fmt.Sprintf("%dh ago", hours)
	case mins > 0:
		return fmt.Sprintf("%dm ago", mins)
	}
	return "Just now"
}

// TimeAgoString parses an RFC 3339 backend timestamp. Unparseable input is
// returned unchanged.
func TimeAgoString(ts string, now time.Time) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return TimeAgo(t, now)
}

// GuidanceBand colours a backend guidance level.
func GuidanceBand(level string) Band {
	switch level {
	case "critical", "danger":
		return BandBad
	case "warning":
		return BandWarn
	}
	return BandGood
}

// CanRetry reports whether a queued message may be re-queued.
func CanRetry(s wire.QueueMessageStatus) bool {
	return s == wire.QueueFailed
}

// CanCancel reports whether a queued message may be removed.
func CanCancel(s wire.QueueMessageStatus) bool {
	return s == wire.QueuePending || s == wire.QueueFailed
}
