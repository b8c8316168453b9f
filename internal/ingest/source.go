package ingest

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	pathIDPattern     = regexp.MustCompile(`^/(?:live|embed)/([^/?]+)`)
	fallbackIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/live/|youtube\.com/embed/)([^&?\s/]+)`)
	bareIDPattern     = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// ResolveVideoID extracts the video id from a short link, a watch link, a
// /live/ or /embed/ link, or a bare 11 character id.
func ResolveVideoID(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", ErrUnresolvableSource
	}

	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		if id := videoIDFromURL(u); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("%w: %s", ErrUnresolvableSource, source)
	}

	if m := fallbackIDPattern.FindStringSubmatch(source); m != nil {
		return m[1], nil
	}
	if bareIDPattern.MatchString(source) {
		return source, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnresolvableSource, source)
}

func videoIDFromURL(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" {
		id, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		return id
	}
	if !strings.Contains(host, "youtube.com") {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if m := pathIDPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return ""
}
