// Package logging provides a simple leveled logging interface for the
// prompt explorer application.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable.
// While the terminal UI is running, output is redirected to a rotating
// log file via UseRotatingFile so that log lines do not corrupt the
// interactive display.
package logging
