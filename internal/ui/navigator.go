// Package ui holds client-side presentation state that tools drive:
// navigation requests and the widget overlay shown above the agent chat.
package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrEmptyRoute is returned when navigating without a target id.
var ErrEmptyRoute = errors.New("ui: route target must not be empty")

// RouteKind names a screen.
type RouteKind string

// Screens reachable from tools.
const (
	RouteMatchProfile RouteKind = "match"
	RouteChat         RouteKind = "chat"
)

// Route is a navigation target.
type Route struct {
	Kind RouteKind
	ID   string
}

// Path renders the route as the client path, e.g. "/chat/u2".
func (r Route) Path() string {
	return "/" + string(r.Kind) + "/" + r.ID
}

// Navigator performs screen transitions.
type Navigator interface {
	Navigate(ctx context.Context, r Route) error
}

// RecordingNavigator records every route. OnNavigate, if set, is called
// after recording. It is used by the CLI and in tests.
type RecordingNavigator struct {
	OnNavigate func(Route)

	mu     sync.Mutex
	routes []Route
}

var _ Navigator = (*RecordingNavigator)(nil)

// Navigate implements Navigator.
func (n *RecordingNavigator) Navigate(_ context.Context, r Route) error {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return ErrEmptyRoute
	}

	n.mu.Lock()
	n.routes = append(n.routes, r)
	fn := n.OnNavigate
	n.mu.Unlock()

	if fn != nil {
		fn(r)
	}
	return nil
}

// Routes returns the recorded routes in order.
func (n *RecordingNavigator) Routes() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Route(nil), n.routes...)
}

// Last returns the most recent route.
func (n *RecordingNavigator) Last() (Route, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.routes) == 0 {
		return Route{}, false
	}
	return n.routes[len(n.routes)-1], true
}
