package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"cardistry-catalog/internal/domains/move/feed"
)

const (
	SheetName       = "Moves"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var xlsxHeaders = []string{
	"Name",
	"Creator",
	"Year",
	"Difficulty",
	"Description",
	"Tags",
	"Video",
	"Image URL",
	"Submitted By",
	"Created At",
}

// BuildXLSX writes the filtered moves of view into a single-sheet workbook,
// one row per record in feed order.
func BuildXLSX(view feed.FeedView) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for col, header := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCol, _ := excelize.CoordinatesToCellName(len(xlsxHeaders), 1)
		_ = f.SetCellStyle(SheetName, "A1", lastCol, headerStyle)
	}

	for i, rec := range view.Moves {
		row := i + 2

		var year interface{}
		if rec.Year != nil {
			year = *rec.Year
		}
		submittedBy := ""
		if rec.CreatedBy != nil {
			submittedBy = rec.CreatedBy.Name
		}

		values := []interface{}{
			rec.Name,
			rec.Creator,
			year,
			rec.Difficulty,
			rec.Description,
			strings.Join(rec.Tags, ", "),
			rec.Video,
			rec.ImageURL,
			submittedBy,
			rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
	}

	return f, nil
}

// WriteXLSX builds the workbook and streams it to w.
func WriteXLSX(w io.Writer, view feed.FeedView) error {
	f, err := BuildXLSX(view)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
