// Package config loads the sheetcheck configuration.
//
// # Configuration Sources
//
// Values are resolved in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. The YAML configuration file
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// Every scalar and list field can be overridden with a SHEETCHECK_* variable
// named after its section and field:
//
//	SHEETCHECK_SERVER_PORT=9090
//	SHEETCHECK_LOGGING_LEVEL=debug
//	SHEETCHECK_VALIDATION_RANK_THRESHOLD=3
//	SHEETCHECK_VALIDATION_REQUIRED_COLUMNS=ID,Name
//	SHEETCHECK_NOTIFICATION_POSTMARK_SERVER_TOKEN=...
//
// Schedules can only be set in the file.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rules := cfg.RuleSet()
//	schedules := cfg.RecurrenceSchedules()
//
// Components receive these values explicitly and never read configuration
// themselves.
package config
