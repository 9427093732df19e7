// Package httpapi exposes the REST and realtime surface of the tracker. The
// handlers translate requests into service calls and map the service error
// taxonomy onto HTTP statuses; all authorization lives in the services.
package httpapi

import (
	"errors"

	"trackerd/internal/auth"
	"trackerd/internal/events"
	"trackerd/internal/service"
)

// Options carries the dependencies for the API layer.
type Options struct {
	Credentials *service.Credentials
	Projects    *service.Projects
	Issues      *service.Issues
	Tokens      *auth.TokenIssuer
	Hub         *events.Hub

	AllowedOrigins []string
}

// API wires dependencies and configuration for the HTTP handlers.
type API struct {
	creds    *service.Credentials
	projects *service.Projects
	issues   *service.Issues
	tokens   *auth.TokenIssuer
	hub      *events.Hub

	allowedOrigins []string
}

// New initialises the API layer.
func New(opts Options) (*API, error) {
	if opts.Credentials == nil || opts.Projects == nil || opts.Issues == nil {
		return nil, errors.New("credential, project, and issue services are required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	return &API{
		creds:          opts.Credentials,
		projects:       opts.Projects,
		issues:         opts.Issues,
		tokens:         opts.Tokens,
		hub:            opts.Hub,
		allowedOrigins: opts.AllowedOrigins,
	}, nil
}
