// Package api serves the project catalog over HTTP.
//
// Routes are read-only:
//
//	GET /health
//	GET /api/categories
//	GET /api/projects?category=C
//	GET /api/projects/random?category=C
//	GET /api/projects/{id}
//
// Errors are JSON objects of the form {"error":{"code":...,"message":...}}.
package api
