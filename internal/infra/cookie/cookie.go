// Package cookie provides session cookie sources and the Cookie header
// format used when replaying the player's requests.
package cookie

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/publicsuffix"
)

// Source returns the session cookies for an origin, in session order.
type Source interface {
	Cookies(ctx context.Context, origin string) ([]*http.Cookie, error)
}

// Header joins cookies as name=value pairs separated by ";" with no
// trailing separator. Order is preserved.
func Header(cookies []*http.Cookie) string {
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, ";")
}

// ParseHeader splits a Cookie header value into cookies.
// Both "a=1;b=2" and "a=1; b=2" are accepted.
func ParseHeader(header string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		if name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies
}

// Jar is a Source backed by an in-process cookie jar.
// It serves the one-shot sync command, where cookies come from the
// command line instead of the browser session.
type Jar struct {
	jar *cookiejar.Jar
}

// NewJar creates an empty jar using the public suffix list.
func NewJar() (*Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}
	return &Jar{jar: jar}, nil
}

// Set stores cookies for the origin.
func (j *Jar) Set(origin string, cookies []*http.Cookie) error {
	u, err := url.Parse(origin)
	if err != nil {
		return errors.Wrapf(err, "invalid origin %q", origin)
	}
	j.jar.SetCookies(u, cookies)
	return nil
}

// Cookies implements Source.
func (j *Jar) Cookies(_ context.Context, origin string) ([]*http.Cookie, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid origin %q", origin)
	}
	return j.jar.Cookies(u), nil
}
