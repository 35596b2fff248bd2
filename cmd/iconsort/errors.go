package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"iconsort/internal/services"
)

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	hintLabel  = color.New(color.FgYellow)
)

// printError writes err followed by any remediation steps attached to it.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errorLabel.Sprint("error:"), err)
	for _, step := range services.Remediation(err) {
		fmt.Fprintf(w, "  %s %s\n", hintLabel.Sprint("->"), step)
	}
}
