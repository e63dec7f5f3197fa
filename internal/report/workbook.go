package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"brick-tracker/internal/alerts"
	"brick-tracker/internal/history"
)

const alertsSheet = "Alerts"

var alertHeader = []interface{}{"Kind", "Priority", "Item ID", "Item", "Message", "Details"}

var historyHeader = []interface{}{"Timestamp", "Price", "Availability", "Retired", "Retirement Estimate", "Predicted Pop %", "1Y Target", "1Y Growth %"}

// WriteWorkbook writes an xlsx workbook with an Alerts sheet followed by one
// sheet per item history.
func WriteWorkbook(w io.Writer, res alerts.Result, histories []*history.ItemHistory) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", alertsSheet); err != nil {
		return fmt.Errorf("failed to name alerts sheet: %w", err)
	}
	if err := writeAlerts(f, res); err != nil {
		return err
	}

	used := map[string]bool{alertsSheet: true}
	for _, h := range histories {
		name := historySheetName(h.ItemID, used)
		used[name] = true
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
		if err := writeHistory(f, name, h); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeAlerts(f *excelize.File, res alerts.Result) error {
	if err := f.SetSheetRow(alertsSheet, "A1", &alertHeader); err != nil {
		return fmt.Errorf("failed to write alerts header: %w", err)
	}
	if res.Status == alerts.StatusInsufficientData {
		row := []interface{}{string(alerts.StatusInsufficientData), "", "", "", strings.TrimSpace(InsufficientData(res.Snapshots))}
		return setRow(f, alertsSheet, 2, row)
	}
	for i, ev := range res.Ordered() {
		details := make([]string, 0, len(ev.Details))
		for _, k := range sortedKeys(ev.Details) {
			details = append(details, k+"="+ev.Details[k])
		}
		row := []interface{}{string(ev.Kind), string(ev.Priority), ev.ItemID, ev.ItemName, ev.Message, strings.Join(details, "; ")}
		if err := setRow(f, alertsSheet, i+2, row); err != nil {
			return err
		}
	}
	return f.SetColWidth(alertsSheet, "E", "F", 60)
}

func writeHistory(f *excelize.File, sheet string, h *history.ItemHistory) error {
	if err := f.SetSheetRow(sheet, "A1", &historyHeader); err != nil {
		return fmt.Errorf("failed to write history header: %w", err)
	}
	for i, p := range h.DataPoints {
		row := []interface{}{
			p.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			p.CurrentPrice,
			p.AvailabilityState,
			p.RetiredMarker,
			p.RetirementEstimate,
			p.PredictedPopPercent,
			p.OneYearTargetValue,
			p.FirstYearGrowthPercent,
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// historySheetName fits "History <id>" into the 31-character sheet name limit
// and strips characters excel rejects.
func historySheetName(id string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, id)
	name := truncate("History "+clean, 31)
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf(" %d", n)
		name = truncate("History "+clean, 31-len(suffix)) + suffix
	}
	return name
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max])
	}
	return s
}
