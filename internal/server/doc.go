// Package server hosts the Fiber HTTP application and its middleware chain:
// request IDs, CORS, panic recovery and the JSON error envelope that maps
// apperr kinds onto HTTP status codes. Handlers live in the routes package and
// receive their collaborators explicitly, so keep exports narrow.
package server
