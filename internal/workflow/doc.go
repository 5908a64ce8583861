// Package workflow runs spreadsheet validation end to end.
//
// A run loads one or more tables through a Loader, validates each table with
// the row validator, merges the per-table reports into one aggregate report and
// decides the notification of the run:
//
//   - issues_found when any table is invalid or could not be loaded
//   - periodic_due when all tables are valid and a compliance schedule is due
//   - clean otherwise
//
// Exactly one Notifier call is made per run, however many tables are invalid or
// schedules are due. A run that fails as a whole is reported with status
// "failed" and sends nothing.
//
// Core Components:
//
// Orchestrator: validates tables, optionally in parallel, and merges their
// reports in input order.
//
// Workflow: wraps the orchestrator with loading, notification, tracing and
// metrics, and produces a RunResult.
package workflow
