package retrieval

import (
	"fmt"

	"dripl/internal/routes"
)

// RouteSource is the route pool view the planner needs.
type RouteSource interface {
	Len() int
	At(i int) (routes.Route, error)
	Current() (routes.Route, bool)
	Advance() (routes.Route, bool)
}

// Attempt is one planned (route, credential) pairing. Empty fields mean
// "no route" and "no credential".
type Attempt struct {
	Route      routes.Route
	Credential string
}

// Plan returns the ordered attempts for req. The result is never empty: with
// no routes and no credentials it is a single bare attempt.
//
// Route selection: an explicit route URL wins, then an index into the pool,
// then the pool cursor (advanced first when the request asks to rotate).
// Every credential is tried under each selected route, in order.
func Plan(pool RouteSource, credentials []string, req Request) ([]Attempt, error) {
	var selected []routes.Route
	switch {
	case req.RouteURL != "":
		selected = []routes.Route{routes.Route(req.RouteURL)}
	case req.RouteIndex != nil:
		if pool == nil {
			return nil, fmt.Errorf("%w: route index %d with no configured routes", ErrBadRoute, *req.RouteIndex)
		}
		route, err := pool.At(*req.RouteIndex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRoute, err)
		}
		selected = []routes.Route{route}
	case pool != nil && pool.Len() > 0:
		var route routes.Route
		if req.Rotate {
			route, _ = pool.Advance()
		} else {
			route, _ = pool.Current()
		}
		selected = []routes.Route{route}
	default:
		selected = []routes.Route{""}
	}

	creds := credentials
	if len(creds) == 0 {
		creds = []string{""}
	}

	plan := make([]Attempt, 0, len(selected)*len(creds))
	for _, route := range selected {
		for _, cred := range creds {
			plan = append(plan, Attempt{Route: route, Credential: cred})
		}
	}
	return plan, nil
}
