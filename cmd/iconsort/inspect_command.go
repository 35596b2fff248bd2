package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"iconsort/internal/metadata"
)

type inspectOutput struct {
	Path        string     `json:"path"`
	Found       bool       `json:"found"`
	Version     *int       `json:"version,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Confidence  *float64   `json:"confidence,omitempty"`
	Reasoning   *string    `json:"reasoning,omitempty"`
	DuplicateOf *string    `json:"duplicate_of,omitempty"`
	Processed   *time.Time `json:"processed,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "inspect <file>",
		Short:       "Show metadata embedded in a processed SVG",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			p := metadata.Extract(content)
			view := inspectOutput{
				Path:        path,
				Found:       !p.Empty(),
				Version:     p.Version,
				Category:    p.Category,
				Tags:        p.Tags,
				Confidence:  p.Confidence,
				Reasoning:   p.Reasoning,
				DuplicateOf: p.DuplicateOf,
				Processed:   p.Processed,
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			if !view.Found {
				fmt.Fprintf(out, "%s: no iconsort metadata\n", path)
				return nil
			}
			var pairs [][2]string
			if p.Category != nil {
				pairs = append(pairs, [2]string{"Category", *p.Category})
			}
			if p.Tags != nil {
				pairs = append(pairs, [2]string{"Tags", strings.Join(p.Tags, ", ")})
			}
			if p.Confidence != nil {
				pairs = append(pairs, [2]string{"Confidence", strconv.FormatFloat(*p.Confidence, 'f', 2, 64)})
			}
			if p.Reasoning != nil {
				pairs = append(pairs, [2]string{"Reasoning", *p.Reasoning})
			}
			if p.DuplicateOf != nil {
				pairs = append(pairs, [2]string{"Duplicate of", *p.DuplicateOf})
			}
			if p.Processed != nil {
				pairs = append(pairs, [2]string{"Processed", p.Processed.UTC().Format(time.RFC3339)})
			}
			if p.Version != nil {
				pairs = append(pairs, [2]string{"Format version", strconv.Itoa(*p.Version)})
			}
			fmt.Fprintln(out, path)
			fmt.Fprintln(out, keyValueTable(pairs))
			return nil
		},
	}
}
