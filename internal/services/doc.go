// Package services implements the application layer behind the HTTP API.
// Services accept plain Go values, coordinate storage, loaders and the
// validation workflow, and return domain results. Handlers map the sentinel
// errors of this package to HTTP problems.
package services
