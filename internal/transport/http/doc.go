// Package http implements the HTTP handlers of the validation API.
//
// Handlers are thin: they decode and validate request parameters, call a
// service, and render JSON with go-chi/render. Every failure is rendered as
// an RFC 7807 problem by the shared error handler.
//
// # Routes
//
//	POST /api/v1/validations           multipart upload (file, optional sheet)
//	POST /api/v1/validations/{key}     re-run a stored upload
//	GET  /api/v1/uploads               list stored uploads
//	GET  /api/v1/schedules/due?date=   evaluate schedules for a date
//	GET  /healthz                      liveness
//	GET  /readyz                       readiness
package http
