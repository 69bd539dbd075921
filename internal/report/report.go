// Package report builds the administrators' aggregate progress workbook.
package report

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/brightpath/courseplayer/internal/catalog"
	"github.com/brightpath/courseplayer/internal/completion"
	"github.com/brightpath/courseplayer/internal/progress"
)

// Source supplies the records the report aggregates over.
type Source interface {
	progress.UserLister
	Fetch(ctx context.Context, userID string) (progress.RecordSet, error)
}

// Builder renders per-user, per-chapter completion into a workbook.
type Builder struct {
	catalog *catalog.Catalog
	source  Source
	printer *message.Printer
}

// NewBuilder creates a report builder.
func NewBuilder(cat *catalog.Catalog, source Source) *Builder {
	return &Builder{
		catalog: cat,
		source:  source,
		printer: message.NewPrinter(language.English),
	}
}

const sheet = "Progress"

// Build fetches every user's records and writes one row per user: chapter
// percentages, completed unit count, and the unit they would resume at.
func (b *Builder) Build(ctx context.Context) (*excelize.File, error) {
	users, err := b.source.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	var chapterIDs []string
	headers := []any{"User", "Units completed", "Next unit"}
	for _, sem := range b.catalog.Semesters() {
		for _, ch := range sem.Chapters {
			chapterIDs = append(chapterIDs, ch.ID)
			title := ch.Title
			if title == "" {
				title = ch.ID
			}
			headers = append(headers, title)
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	for i, userID := range users {
		set, err := b.source.Fetch(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("fetching records for %s: %w", userID, err)
		}

		done := 0
		for _, unitID := range b.catalog.UnitIDs() {
			if completion.IsUnitComplete(b.catalog, set, unitID) {
				done++
			}
		}

		next, ok := completion.NextActionableUnit(b.catalog, set)
		if !ok {
			next = "course complete"
		}

		row := []any{
			userID,
			b.printer.Sprintf("%d of %d", done, b.catalog.Len()),
			next,
		}
		for _, chID := range chapterIDs {
			pct := completion.ChapterPercentage(b.catalog, set, chID)
			row = append(row, b.printer.Sprintf("%d%%", pct))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("writing row for %s: %w", userID, err)
		}
	}

	return f, nil
}
