package kpi

import (
	"context"
	"fmt"

	"restoran-kpi/internal/analytics"
	"restoran-kpi/internal/scope"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "KPI"

var exportHeader = []interface{}{
	"Period", "Restaurant ID", "Restaurant", "Entries",
	"Revenue", "Labour Cost", "Food Cost", "Orders",
	"Labour Cost %", "Food Cost %", "Avg Ticket",
	"Revenue Trend %", "Orders Trend %", "Labour Trend %", "Food Trend %",
	"Labour Status", "Food Status",
}

// ExportAggregate renders the same buckets Aggregate returns as an XLSX
// workbook, one row per bucket.
func (s *Service) ExportAggregate(ctx context.Context, caller scope.Caller, q AggregateQuery) ([]byte, error) {
	buckets, err := s.Aggregate(ctx, caller, q)
	if err != nil {
		return nil, err
	}
	return WriteWorkbook(buckets)
}

func WriteWorkbook(buckets []Bucket) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, b := range buckets {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := bucketRow(b)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func bucketRow(b Bucket) []interface{} {
	row := []interface{}{
		b.Period, b.RestaurantID, b.RestaurantName, b.Entries,
		b.Revenue.InexactFloat64(), b.LabourCost.InexactFloat64(), b.FoodCost.InexactFloat64(), b.Orders,
		b.LabourCostPercent.InexactFloat64(), b.FoodCostPercent.InexactFloat64(), b.AvgTicket.InexactFloat64(),
	}
	if b.Trends != nil {
		row = append(row, trendCells(*b.Trends)...)
	} else {
		row = append(row, nil, nil, nil, nil)
	}
	return append(row, string(b.Alerts.LabourCost), string(b.Alerts.FoodCost))
}

func trendCells(t analytics.Trends) []interface{} {
	return []interface{}{
		t.Revenue.InexactFloat64(),
		t.Orders.InexactFloat64(),
		t.LabourCost.InexactFloat64(),
		t.FoodCost.InexactFloat64(),
	}
}
