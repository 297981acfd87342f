package crawler

import (
	"net/url"
	"strings"
)

// DefaultNoiseParams returns the query parameter keys that only affect
// pagination or windowing of an otherwise-identical listing. The
// defaults cover the Joomla-style catalogs this tool was built for,
// where "limit" and "limitstart" slice one listing into pages.
func DefaultNoiseParams() []string {
	return []string{"limit", "limitstart"}
}

// Normalizer canonicalizes catalog addresses for deduplication.
//
// Two addresses normalize equal iff they denote the same logical catalog
// position. Normalize is pure and never fails: listing pages are
// untrusted HTML, so a malformed address is normalized best-effort
// rather than rejected.
type Normalizer struct {
	// noise holds the query keys stripped during normalization.
	noise map[string]struct{}
}

// NewNormalizer creates a Normalizer that strips the given query keys.
// With no arguments, DefaultNoiseParams are used.
func NewNormalizer(noiseKeys ...string) Normalizer {
	if len(noiseKeys) == 0 {
		noiseKeys = DefaultNoiseParams()
	}

	noise := make(map[string]struct{}, len(noiseKeys))
	for _, key := range noiseKeys {
		noise[key] = struct{}{}
	}
	return Normalizer{noise: noise}
}

// Normalize returns the canonical identity of an address.
//
// Scheme and host are lowercased, the fragment is dropped, an empty path
// becomes "/", and noise query parameters are removed. Remaining query
// pairs keep their original order and are re-encoded deterministically,
// so normalizing an already-normalized address is a no-op.
func (n Normalizer) Normalize(address string) string {
	address = strings.TrimSpace(address)

	u, err := url.Parse(address)
	if err != nil {
		// Untrusted input that net/url cannot parse still needs a stable
		// identity; the trimmed raw string is the best we can do.
		return address
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	// http://example.com and http://example.com/ are the same listing.
	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}

	u.RawQuery = n.filterQuery(u.RawQuery)
	return u.String()
}

// filterQuery drops noise keys and re-encodes the remaining pairs.
//
// We walk the raw query by hand instead of using url.Values because
// Values is a map: it loses the original parameter order, and a stable
// order is what makes normalization deterministic and idempotent.
func (n Normalizer) filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	var b strings.Builder
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")

		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			decodedKey = key
		}
		if _, noisy := n.noise[decodedKey]; noisy {
			continue
		}

		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			decodedValue = value
		}

		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(decodedKey))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(decodedValue))
	}
	return b.String()
}
