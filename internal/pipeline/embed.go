package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"iconsort/internal/artifacts"
	"iconsort/internal/classify"
	"iconsort/internal/dedupe"
	"iconsort/internal/inventory"
	"iconsort/internal/logging"
	"iconsort/internal/metadata"
)

// embed tags every item with its metadata block and writes it into the
// output tree. Dry runs tag and resolve destinations but write nothing.
// Failures skip the item and are listed in the summary.
func (p *Pipeline) embed(logger *slog.Logger, items []inventory.Item, groups []dedupe.Group, records map[string]classify.Record, summary *Summary) {
	members := dedupe.Members(groups)
	processed := p.now().UTC()
	prepared, written := 0, 0
	for i, item := range items {
		var (
			fields    metadata.Fields
			duplicate bool
		)
		if group, ok := members[item.ID]; ok {
			duplicate = true
			fields = p.duplicateFields(group, records, processed)
		} else {
			record, ok := records[item.ID]
			if !ok {
				continue
			}
			fields = metadata.Fields{
				Category:   record.Category,
				Tags:       record.Tags,
				Confidence: record.Confidence,
				Reasoning:  record.Reasoning,
				Processed:  processed,
			}
		}

		body := metadata.Embed(item.Content, fields)
		summary.Items[i].EmbeddedBytes = len(body)
		var (
			dst string
			err error
		)
		if summary.DryRun {
			_, err = artifacts.IconPath(p.layout, item.RelPath, duplicate)
		} else {
			dst, err = artifacts.WriteIcon(p.layout, item.RelPath, body, duplicate)
		}
		if err != nil {
			logging.WarnWithContext(logger, "failed to write icon", "embed_write_failed",
				logging.String(logging.FieldItemID, item.ID),
				logging.String("file", item.RelPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "icon missing from output tree"),
			)
			summary.SkippedFiles = append(summary.SkippedFiles, SkippedFile{Path: item.Path, Reason: err.Error()})
			summary.Items[i].Error = err.Error()
			continue
		}
		prepared++
		if dst != "" {
			summary.Items[i].Output = dst
			written++
		}
	}
	logger.Info("icons tagged",
		logging.String(logging.FieldEventType, "embed_complete"),
		logging.Int("tagged", prepared),
		logging.Int("written", written),
		logging.Bool("dry_run", summary.DryRun),
		logging.String("unique_dir", p.layout.UniqueDir),
		logging.String("duplicates_dir", p.layout.DuplicatesDir),
	)
}

// duplicateFields describes a group member. It carries its primary's
// category and tags when the primary was classified, and the group
// similarity as confidence.
func (p *Pipeline) duplicateFields(group dedupe.Group, records map[string]classify.Record, processed time.Time) metadata.Fields {
	fields := metadata.Fields{
		Category:    p.cfg.Classify.DefaultCategory,
		Tags:        []string{},
		Confidence:  group.Similarity,
		Reasoning:   fmt.Sprintf("duplicate of %s", group.Primary.RelPath),
		DuplicateOf: group.Primary.RelPath,
		Processed:   processed,
	}
	if record, ok := records[group.Primary.ID]; ok && !record.IsError() {
		fields.Category = record.Category
		fields.Tags = record.Tags
	}
	return fields
}
