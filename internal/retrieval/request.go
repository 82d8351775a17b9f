package retrieval

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"dripl/internal/routes"
	"dripl/internal/ytdlp"
)

var (
	// ErrBadURL rejects a target that is not an absolute http(s) URL.
	ErrBadURL = errors.New("bad url")
	// ErrBadFormat rejects an unknown output format.
	ErrBadFormat = errors.New("bad format")
	// ErrBadRoute rejects an explicit route, route index, or rotate directive.
	ErrBadRoute = errors.New("bad route")
)

// RotateNext is the only accepted rotate directive.
const RotateNext = "next"

// Input is the caller-supplied, unvalidated request.
type Input struct {
	URL        string
	Format     string
	RouteIndex *int
	RouteURL   string
	Rotate     string
}

// Request is a validated retrieval request. It is immutable once built.
type Request struct {
	ID         string
	URL        string
	Format     ytdlp.Format
	RouteIndex *int
	RouteURL   string
	Rotate     bool
}

// NewRequest validates in and assigns a fresh request identifier.
func NewRequest(in Input) (Request, error) {
	target := strings.TrimSpace(in.URL)
	parsed, err := url.Parse(target)
	if target == "" || err != nil {
		return Request{}, fmt.Errorf("%w: %q", ErrBadURL, in.URL)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return Request{}, fmt.Errorf("%w: %q", ErrBadURL, in.URL)
	}

	format, err := ytdlp.ParseFormat(in.Format)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}

	req := Request{
		ID:     uuid.NewString(),
		URL:    parsed.String(),
		Format: format,
	}

	if routeURL := strings.TrimSpace(in.RouteURL); routeURL != "" {
		if err := routes.Validate(routeURL); err != nil {
			return Request{}, fmt.Errorf("%w: %v", ErrBadRoute, err)
		}
		req.RouteURL = routeURL
	}
	if in.RouteIndex != nil {
		if *in.RouteIndex < 0 {
			return Request{}, fmt.Errorf("%w: negative route index %d", ErrBadRoute, *in.RouteIndex)
		}
		idx := *in.RouteIndex
		req.RouteIndex = &idx
	}
	switch strings.ToLower(strings.TrimSpace(in.Rotate)) {
	case "":
	case RotateNext:
		req.Rotate = true
	default:
		return Request{}, fmt.Errorf("%w: unsupported rotate directive %q", ErrBadRoute, in.Rotate)
	}
	return req, nil
}
