package artifacts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"iconsort/internal/dedupe"
	"iconsort/internal/fileutil"
)

// DuplicateReport renders groups as a plain-text table, one row per member.
func DuplicateReport(groups []dedupe.Group, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Duplicate report generated %s\n", generatedAt.UTC().Format(time.RFC3339))

	members := 0
	for _, g := range groups {
		members += len(g.Members)
	}
	fmt.Fprintf(&b, "%d groups, %d redundant files\n\n", len(groups), members)
	if len(groups) == 0 {
		b.WriteString("No duplicates found.\n")
		return b.String()
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Primary", "Duplicate", "Match", "Similarity", "Action"})
	for i, g := range groups {
		match := "near"
		if g.Exact {
			match = "exact"
		}
		for j, m := range g.Members {
			group, primary := "", ""
			if j == 0 {
				group = strconv.Itoa(i + 1)
				primary = g.Primary.RelPath
			}
			tw.AppendRow(table.Row{group, primary, m.RelPath, match, fmt.Sprintf("%.2f", g.Similarity), string(g.Disposition)})
		}
		if i < len(groups)-1 {
			tw.AppendSeparator()
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	b.WriteString(tw.Render())
	b.WriteString("\n")
	return b.String()
}

// WriteDuplicateReport writes DuplicateReport output to duplicate_report.txt.
func WriteDuplicateReport(layout Layout, groups []dedupe.Group, generatedAt time.Time) (string, error) {
	dst := layout.DuplicateReportPath()
	if err := fileutil.WriteFileAtomic(dst, []byte(DuplicateReport(groups, generatedAt)), 0o644); err != nil {
		return "", fmt.Errorf("write duplicate report: %w", err)
	}
	return dst, nil
}
