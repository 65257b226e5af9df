package utils

import (
	"fmt"
)

// ANSI color codes for terminal output.
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
)

// PrintBanner displays the startup banner. Dry-run sessions get a
// different color so it is obvious nothing will be submitted.
func PrintBanner(version string, dryRun bool) {
	color := ColorGreen
	mode := "LIVE - applications will be submitted"
	if dryRun {
		color = ColorCyan
		mode = "DRY-RUN - browse and match only"
	}

	fmt.Println()
	fmt.Printf("%s######################################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                                    #%s\n", color, ColorReset)
	fmt.Printf("%s#               JOB APPLICATION AUTOMATION AGENT                     #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                                    #%s\n", color, ColorReset)
	fmt.Printf("%s#   MODE:    %-55s #%s\n", color, mode, ColorReset)
	fmt.Printf("%s#   VERSION: %-55s #%s\n", color, version, ColorReset)
	fmt.Printf("%s#                                                                    #%s\n", color, ColorReset)
	fmt.Printf("%s#   EDUCATIONAL USE ONLY - comply with platform terms of service     #%s\n", ColorYellow, ColorReset)
	fmt.Printf("%s######################################################################%s\n", color, ColorReset)
	fmt.Println()
}
