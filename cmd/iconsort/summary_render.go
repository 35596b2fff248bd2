package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"

	"iconsort/internal/pipeline"
)

var (
	okStyle   = color.New(color.FgGreen)
	warnStyle = color.New(color.FgYellow)
)

func renderSummary(w io.Writer, s *pipeline.Summary) {
	state := okStyle.Sprint(string(s.State))
	if s.State != pipeline.StateDone {
		state = warnStyle.Sprint(string(s.State))
	}
	fmt.Fprintf(w, "Run %s %s in %s (%s)\n", s.RunID, state,
		(time.Duration(s.DurationMS) * time.Millisecond).Round(time.Millisecond), s.ProviderID)
	if s.DryRun {
		fmt.Fprintln(w, "Dry run: no files were written")
	}

	fmt.Fprintln(w, keyValueTable([][2]string{
		{"Total icons", strconv.Itoa(s.TotalItems)},
		{"Unique", strconv.Itoa(s.UniqueItems)},
		{"Duplicates", strconv.Itoa(s.DuplicateItems)},
		{"Errors", strconv.Itoa(s.ErrorItems)},
		{"Cache hits", strconv.Itoa(s.CacheHits)},
		{"Skipped files", strconv.Itoa(len(s.SkippedFiles))},
	}))

	if len(s.CategoryCounts) > 0 {
		rows := make([][]string, 0, len(s.CategoryCounts))
		for _, name := range s.Categories() {
			rows = append(rows, []string{name, strconv.Itoa(s.CategoryCounts[name])})
		}
		fmt.Fprintln(w, renderTable([]string{"Category", "Icons"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	var failures [][]string
	for _, item := range s.Items {
		if item.Status == pipeline.StatusError || item.Error != "" {
			failures = append(failures, []string{item.RelPath, item.Error})
		}
	}
	for _, skipped := range s.SkippedFiles {
		failures = append(failures, []string{skipped.Path, skipped.Reason})
	}
	if len(failures) > 0 {
		fmt.Fprintln(w, warnStyle.Sprint("Problems:"))
		fmt.Fprintln(w, renderTable([]string{"File", "Reason"}, failures, nil))
	}
	if s.ReportsDir != "" {
		fmt.Fprintf(w, "Reports: %s\n", s.ReportsDir)
	}
	if s.BackupDir != "" {
		fmt.Fprintf(w, "Backup: %s\n", s.BackupDir)
	}
}
