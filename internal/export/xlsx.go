package export

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/signal-research/internal/model"
)

// Sheet names written by WriteXLSX.
const (
	SheetSignals  = "Signals"
	SheetNoise    = "Noise"
	SheetDecision = "Decision"
)

var itemHeader = []string{"Source", "Content", "Confidence", "URL", "Provider", "Timestamp"}

// WriteXLSX saves report as a workbook with one sheet each for signals,
// noise and the run summary with its strategic decision.
func WriteXLSX(path string, report *model.Report) error {
	f := xlsx.NewFile()

	if err := addItemSheet(f, SheetSignals, report.Data.Signals); err != nil {
		return err
	}
	if err := addItemSheet(f, SheetNoise, report.Data.Noise); err != nil {
		return err
	}

	sheet, err := f.AddSheet(SheetDecision)
	if err != nil {
		return eris.Wrapf(err, "xlsx: add sheet %s", SheetDecision)
	}
	run := report.Run
	addRow(sheet, "Query", run.Query)
	addRow(sheet, "Enhanced Query", run.EnhancedQuery)
	addRow(sheet, "Run ID", run.ID)
	if !run.StartedAt.IsZero() {
		addRow(sheet, "Started At", run.StartedAt.UTC().Format(time.RFC3339))
	}
	addRow(sheet, "Strategic Decision", report.Data.StrategicDecision)

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save file")
	}
	return nil
}

func addItemSheet(f *xlsx.File, name string, items []model.ResearchItem) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "xlsx: add sheet %s", name)
	}
	addRow(sheet, itemHeader...)

	for _, it := range items {
		row := sheet.AddRow()
		row.AddCell().SetString(it.Source)
		row.AddCell().SetString(it.Content)
		row.AddCell().SetFloat(it.Confidence)
		row.AddCell().SetString(it.URL)
		row.AddCell().SetString(string(it.FetchedBy))
		ts := ""
		if !it.Timestamp.IsZero() {
			ts = it.Timestamp.UTC().Format(time.RFC3339)
		}
		row.AddCell().SetString(ts)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
