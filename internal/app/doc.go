// Package app wires the validation service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from the YAML file and SHEETCHECK_* variables
//  2. Initialize logging and OpenTelemetry
//  3. Build the upload store (local directory or S3)
//  4. Build the notification sender (Postmark, dev directory or log)
//  5. Build the validation workflow from the rule set and schedules
//  6. Set up HTTP handlers and middleware
//  7. Configure and start the HTTP server
//
// The builders in wiring.go are shared with the command line tool so both
// binaries validate with identical settings.
//
// # Error Handling
//
// All initialization errors are returned to the caller. The package does not
// call os.Exit.
package app
