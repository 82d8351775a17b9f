package api

import (
	"net/http"

	"dripl/internal/credentials"
	"dripl/internal/deps"
	"dripl/internal/retrieval"
	"dripl/internal/routes"
)

// Input converts the wire request into an unvalidated retrieval input.
func (r FetchRequest) Input() retrieval.Input {
	return retrieval.Input{
		URL:        r.URL,
		Format:     r.Format,
		RouteIndex: r.ProxyIndex,
		RouteURL:   r.ProxyURL,
		Rotate:     r.Rotate,
	}
}

// FromOutcome renders a finished request and the status to send with it.
// Raw diagnostics are attached only when includeRaw is set.
func FromOutcome(outcome retrieval.Outcome, includeRaw bool) (int, FetchResponse) {
	if outcome.Succeeded() {
		return http.StatusOK, FetchResponse{
			OK:        true,
			File:      outcome.File,
			RequestID: outcome.RequestID,
			Attempts:  len(outcome.Attempts),
		}
	}
	cls := retrieval.Classification{Kind: retrieval.KindUnknown}
	raw := ""
	if outcome.Failure != nil {
		cls = outcome.Failure.Classification
		raw = outcome.Failure.Raw
	}
	mapped := retrieval.MapFailure(cls)
	resp := FromResponse(mapped, cls.Hint)
	resp.RequestID = outcome.RequestID
	resp.Attempts = len(outcome.Attempts)
	if includeRaw {
		resp.Raw = raw
	}
	return mapped.Status, resp
}

// FromError renders an error raised before any attempt ran.
func FromError(err error) (int, FetchResponse) {
	mapped := retrieval.MapRequestError(err)
	detail := ""
	if err != nil && mapped.Key != retrieval.KeyServerCrash {
		detail = err.Error()
	}
	return mapped.Status, FromResponse(mapped, detail)
}

// FromResponse builds a failure body from a mapped response.
func FromResponse(resp retrieval.Response, detail string) FetchResponse {
	return FetchResponse{
		OK:      false,
		Error:   resp.Key,
		Message: resp.Message,
		Detail:  detail,
	}
}

// FromBundles converts credential bundles.
func FromBundles(bundles []credentials.Bundle) []CredentialStatus {
	out := make([]CredentialStatus, 0, len(bundles))
	for _, b := range bundles {
		out = append(out, CredentialStatus{
			Path:   b.Path,
			Exists: b.Exists,
			Bytes:  b.Size,
			Lines:  b.Lines,
		})
	}
	return out
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FromSnapshot fills the route section of a health response.
func FromSnapshot(snap routes.Snapshot) ([]string, int) {
	list := snap.Routes
	if list == nil {
		list = []string{}
	}
	return list, snap.Cursor
}
