package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI color/style codes
const (
	reset   = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	italic  = "\033[3m"
	cyan    = "\033[36m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	red     = "\033[31m"
	magenta = "\033[35m"
	blue    = "\033[34m"
	white   = "\033[97m"
	gray    = "\033[90m"
)

// out is where every line goes. Tests replace it.
var out io.Writer = os.Stderr

// isTTY returns true if out is a terminal.
func isTTY() bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// s wraps text with ANSI codes only when out is a TTY.
func s(codes, text string) string {
	if !isTTY() {
		return text
	}
	return codes + text + reset
}

// Banner prints the startup banner.
//
//	 recovery v0.1.0
func Banner(version string) {
	fmt.Fprintf(out, "\n  %s %s\n", s(bold+cyan, "recovery"), s(dim, "v"+version))
}

// KeyValue prints a labeled line:  ▸ label  value
func KeyValue(label, value string) {
	fmt.Fprintf(out, "  %s %-11s %s\n", s(cyan, "▸"), s(dim, label), s(white, value))
}

// Info prints an info line:  ● message
func Info(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(out, "  %s %s\n", s(cyan, "●"), msg)
}

// Success prints a success line:  ✔ message
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(out, "  %s %s\n", s(green, "✔"), msg)
}

// Warn prints a warning line:  ▲ message
func Warn(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(out, "  %s %s\n", s(yellow, "▲"), msg)
}

// Error prints an error line:  ✖ message
func Error(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(out, "  %s %s\n", s(red, "✖"), msg)
}

// Separator prints a dim horizontal line.
func Separator() {
	fmt.Fprintf(out, "  %s\n", s(dim, strings.Repeat("─", 48)))
}

// Dim wraps text in dim style (for use in other formatted output).
func Dim(text string) string {
	return s(dim, text)
}
