// Package report exports portfolio rollups as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bher20/eimpactmanager/internal/goals"
	"github.com/bher20/eimpactmanager/internal/tracking"
)

const (
	SummarySheet         = "Summary"
	ImplementationsSheet = "Implementations"
	GoalsSheet           = "Goals"
)

var implementationHeaders = []string{
	"ID", "Title", "Category", "Status", "Annual Savings ($)", "ROI Months",
	"Months Elapsed", "Expected Progress (%)", "Effective Progress (%)",
	"Current Value ($)", "Implied Cost ($)", "Current ROI (%)",
	"Efficiency (%)", "Payback Progress (%)",
}

var goalHeaders = []string{
	"ID", "Title", "Category", "Current", "Target", "Unit", "Progress (%)", "Achieved At",
}

// Portfolio is the content of one export.
type Portfolio struct {
	UserID      string
	GeneratedAt time.Time
	Rollup      tracking.Portfolio
	Goals       []goals.Goal
}

// WritePortfolio writes p as an XLSX workbook to w.
func WritePortfolio(w io.Writer, p Portfolio) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	if err := writeSummary(f, p); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeImplementations(f, p.Rollup.Items); err != nil {
		return fmt.Errorf("implementations sheet: %w", err)
	}
	if err := writeGoals(f, p.Goals); err != nil {
		return fmt.Errorf("goals sheet: %w", err)
	}

	_, err := f.WriteTo(w)
	return err
}

func writeSummary(f *excelize.File, p Portfolio) error {
	r := p.Rollup
	rows := [][]any{
		{"User", p.UserID},
		{"Generated At", p.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Implementations", r.Implementations},
		{"Total Investment ($)", r.TotalInvestment},
		{"Total Current Value ($)", r.TotalCurrentValue},
		{"Total Annual Savings ($)", r.TotalAnnualSavings},
		{"Portfolio ROI (%)", r.PortfolioROIPct},
		{"Average Payback (months)", r.AveragePaybackMonths},
		{"Average Efficiency (%)", r.AverageEfficiency},
	}
	for _, st := range tracking.Statuses {
		rows = append(rows, []any{"Status: " + string(st), r.StatusCounts[st]})
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(SummarySheet, "B", "B", 40); err != nil {
		return err
	}
	return writeRows(f, SummarySheet, 1, rows)
}

func writeImplementations(f *excelize.File, items []tracking.ROIMetrics) error {
	if _, err := f.NewSheet(ImplementationsSheet); err != nil {
		return err
	}
	if err := writeHeader(f, ImplementationsSheet, implementationHeaders); err != nil {
		return err
	}
	rows := make([][]any, 0, len(items))
	for _, m := range items {
		rows = append(rows, []any{
			m.ImplementationID, m.Title, m.Category, string(m.Status),
			m.EstimatedAnnualSavings, m.EstimatedROIMonths, m.MonthsElapsed,
			m.ExpectedProgressPct, m.EffectiveProgressPct, m.CurrentValue,
			m.ImpliedCost, m.CurrentROIPct, m.EfficiencyScore, m.PaybackProgressPct,
		})
	}
	return writeRows(f, ImplementationsSheet, 2, rows)
}

func writeGoals(f *excelize.File, list []goals.Goal) error {
	if _, err := f.NewSheet(GoalsSheet); err != nil {
		return err
	}
	if err := writeHeader(f, GoalsSheet, goalHeaders); err != nil {
		return err
	}
	rows := make([][]any, 0, len(list))
	for _, g := range list {
		achieved := ""
		if g.AchievedAt != nil {
			achieved = g.AchievedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []any{
			g.ID, g.Title, g.Category, g.CurrentValue, g.TargetValue, g.Unit, g.ProgressPct, achieved,
		})
	}
	return writeRows(f, GoalsSheet, 2, rows)
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, 18); err != nil {
			return err
		}
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, firstRow int, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, firstRow+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
