// Package jobfeed screens external feed items before they are queued for a client.
package jobfeed

import (
	"net"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/publicsuffix"

	"github.com/jumpseat/jumpseat-api/internal/domain/model"
)

// SkipReason explains why a feed item was not queued.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipMissingFields  SkipReason = "missing_fields"
	SkipExcludedDomain SkipReason = "excluded_domain"
)

// Screener validates feed items and rejects those whose apply URL belongs to an
// excluded registrable domain. It is safe for concurrent use.
type Screener struct {
	validate *validator.Validate
	excluded map[string]struct{}
}

// NewScreener builds a Screener. Each excluded entry matches its own registrable
// domain and every subdomain of it ("atsportal.com" excludes "acme.wd5.atsportal.com").
func NewScreener(excludeDomains []string) *Screener {
	s := &Screener{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		excluded: make(map[string]struct{}, len(excludeDomains)),
	}
	for _, d := range excludeDomains {
		if key := RegistrableDomain(d); key != "" {
			s.excluded[key] = struct{}{}
		}
	}
	return s
}

// Screen normalizes item in place and reports why it must be skipped, or SkipNone.
func (s *Screener) Screen(item *model.FeedItem) SkipReason {
	item.Normalize()
	if err := s.validate.Struct(item); err != nil {
		return SkipMissingFields
	}
	if s.Excluded(item.ApplyURL) {
		return SkipExcludedDomain
	}
	return SkipNone
}

// Excluded reports whether applyURL's registrable domain is in the excluded set.
func (s *Screener) Excluded(applyURL string) bool {
	if len(s.excluded) == 0 {
		return false
	}
	key := RegistrableDomain(applyURL)
	if key == "" {
		return false
	}
	_, ok := s.excluded[key]
	return ok
}

// RegistrableDomain returns the eTLD+1 of a URL or bare host. Hosts without a public
// suffix (IPs, localhost) are returned as-is; unparseable input yields "".
func RegistrableDomain(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}

	host := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		host = u.Hostname()
	} else if h, _, err := net.SplitHostPort(raw); err == nil {
		host = h
	} else if i := strings.IndexByte(raw, '/'); i >= 0 {
		host = raw[:i]
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}
