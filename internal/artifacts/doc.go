// Package artifacts owns the output tree of a run.
//
// Results are partitioned by model slug so runs against different models
// never overwrite each other:
//
//	<output>/unique/<slug>/...       classified icons, input layout preserved
//	<output>/duplicates/<slug>/...   group members, annotated with their primary
//	<output>/reports/<slug>/         summary.json and duplicate_report.txt
//	<output>/.locks/<slug>.lock      held for the duration of a run
//
// Backups of the input tree go to <backup_dir>/<timestamp>/.
package artifacts
