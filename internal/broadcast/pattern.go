package broadcast

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Pattern is a tab match pattern of the form <scheme|*>://<host>/<path-glob>.
// The host may start with "*." to match subdomains, and "*" in the path
// matches any run of characters.
type Pattern struct {
	raw    string
	scheme string
	host   string
	path   *regexp.Regexp
}

func ParsePattern(raw string) (*Pattern, error) {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, fmt.Errorf("pattern %q: missing scheme separator", raw)
	}
	if scheme != "*" && scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("pattern %q: unsupported scheme %q", raw, scheme)
	}

	host, path, found := strings.Cut(rest, "/")
	if !found || host == "" {
		return nil, fmt.Errorf("pattern %q: host and path are required", raw)
	}
	if strings.Contains(strings.TrimPrefix(host, "*."), "*") {
		return nil, fmt.Errorf("pattern %q: wildcard only allowed as host prefix", raw)
	}

	quoted := strings.Split("/"+path, "*")
	for index := range quoted {
		quoted[index] = regexp.QuoteMeta(quoted[index])
	}
	pathRe, err := regexp.Compile("^" + strings.Join(quoted, ".*") + "$")
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", raw, err)
	}

	return &Pattern{raw: raw, scheme: scheme, host: strings.ToLower(host), path: pathRe}, nil
}

func MustParsePattern(raw string) *Pattern {
	pattern, err := ParsePattern(raw)
	if err != nil {
		panic(err)
	}
	return pattern
}

func (p *Pattern) String() string {
	return p.raw
}

func (p *Pattern) Match(rawURL string) bool {
	if p == nil {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	if p.scheme == "*" {
		if scheme != "http" && scheme != "https" {
			return false
		}
	} else if scheme != p.scheme {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if suffix, wildcard := strings.CutPrefix(p.host, "*."); wildcard {
		if host != suffix && !strings.HasSuffix(host, "."+suffix) {
			return false
		}
	} else if host != p.host {
		return false
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return p.path.MatchString(path)
}
