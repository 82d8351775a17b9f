package retrieval

import (
	"context"
	"errors"
	"net/http"
)

// Response is the external rendering of a failure.
type Response struct {
	Status  int
	Key     string
	Message string
}

// Stable keys for rejections that happen before any attempt runs.
const (
	KeyBadURL      = "bad_url"
	KeyBadFormat   = "bad_format"
	KeyBadRoute    = "bad_route"
	KeyBadRequest  = "bad_request"
	KeyCanceled    = "request_canceled"
	KeyServerCrash = "server_crash"
)

var failureResponses = map[Kind]Response{
	KindAuth: {
		Status:  http.StatusUnauthorized,
		Key:     "yt_403_auth",
		Message: "The source refused access (HTTP 403). Refresh the cookies file or try another route.",
	},
	KindRate: {
		Status:  http.StatusTooManyRequests,
		Key:     "yt_429_rate",
		Message: "The source is rate limiting this server. Wait a few minutes or rotate to another route.",
	},
	KindAgeGate: {
		Status:  http.StatusUnavailableForLegalReasons,
		Key:     "yt_age_gate",
		Message: "This media needs a signed-in session or age confirmation. Provide cookies from a signed-in account.",
	},
	KindGeo: {
		Status:  http.StatusUnavailableForLegalReasons,
		Key:     "yt_geo_blocked",
		Message: "This media is not available in the server's region. Try a route in another country.",
	},
	KindExtractor: {
		Status:  http.StatusBadGateway,
		Key:     "yt_extractor",
		Message: "The downloader could not read this page. Updating yt-dlp usually fixes it.",
	},
	KindProxy: {
		Status:  http.StatusBadGateway,
		Key:     "yt_proxy",
		Message: "The outbound proxy failed. Pick another route or rotate.",
	},
	KindTLS: {
		Status:  http.StatusBadGateway,
		Key:     "yt_tls",
		Message: "A secure connection to the source could not be established.",
	},
	KindTimeout: {
		Status:  http.StatusGatewayTimeout,
		Key:     "yt_timeout",
		Message: "The download did not finish in time and was stopped.",
	},
	KindUnknown: {
		Status:  http.StatusBadGateway,
		Key:     "yt_unknown",
		Message: "The download failed for an unrecognised reason.",
	},
}

// MapFailure renders a classification. Every kind in Kinds has an entry;
// a value outside the taxonomy renders as unknown.
func MapFailure(c Classification) Response {
	if resp, ok := failureResponses[c.Kind]; ok {
		return resp
	}
	return failureResponses[KindUnknown]
}

// MapRequestError renders an error returned before any attempt ran.
func MapRequestError(err error) Response {
	switch {
	case errors.Is(err, ErrBadURL):
		return Response{Status: http.StatusBadRequest, Key: KeyBadURL, Message: "Provide an absolute http or https URL."}
	case errors.Is(err, ErrBadFormat):
		return Response{Status: http.StatusBadRequest, Key: KeyBadFormat, Message: "Format must be mp3 (audio) or mp4 (video)."}
	case errors.Is(err, ErrBadRoute):
		return Response{Status: http.StatusBadRequest, Key: KeyBadRoute, Message: "The requested route is not valid."}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Response{Status: http.StatusServiceUnavailable, Key: KeyCanceled, Message: "The request was cancelled before a download started."}
	default:
		return ServerCrash()
	}
}

// BadRequest renders a malformed request body.
func BadRequest() Response {
	return Response{Status: http.StatusBadRequest, Key: KeyBadRequest, Message: "The request body is not valid JSON."}
}

// ServerCrash renders an unexpected internal failure.
func ServerCrash() Response {
	return Response{Status: http.StatusInternalServerError, Key: KeyServerCrash, Message: "Unexpected server error."}
}
