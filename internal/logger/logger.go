package logger

import (
	"github.com/fatih/color" // Import the fatih/color package for colored console output
)

// Package-level printing functions for the different log levels, built on
// fatih/color. Each behaves like fmt.Printf but writes colorized text, so
// callers use them exactly like fmt.Printf: logger.Info("[INFO] done\n").

// Info logs informational messages in green color.
// Green is used for success or normal progress information.
var Info = color.New(color.FgGreen).PrintfFunc()

// Warn logs warning messages in bright magenta color.
// Magenta stands out and signals caution without being alarming.
var Warn = color.New(color.FgHiMagenta).PrintfFunc()

// Error logs error messages in red color.
// Red draws immediate attention to failures.
var Error = color.New(color.FgRed).PrintfFunc()

// Debug logs debug messages in cyan color when enabled via Init.
// It defaults to a no-op so packages can log before Init runs (tests in
// particular never call Init).
var Debug = func(format string, a ...any) {}

// Init enables or disables debug logging for the whole process.
// When enabled, Debug prints cyan-colored messages; when disabled it stays
// a no-op that silently drops debug logs.
func Init(enableDebug bool) {
	if enableDebug {
		// Assign Debug to print cyan-colored debug messages.
		Debug = color.New(color.FgCyan).PrintfFunc()
	} else {
		Debug = func(format string, a ...any) {}
	}
}
