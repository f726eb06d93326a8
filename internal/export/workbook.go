package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stockcast/internal/domain"
)

var workbookHeader = []string{
	"Article", "Supplier", "ABC", "On hand", "Reorder point", "Safety stock",
	"Order qty", "Order cost", "Days until stockout", "Reorder by", "Priority",
}

// writeWorkbook writes the buyer workbook: one sheet per warehouse listing the
// articles that need reordering, in recommendation order.
func writeWorkbook(path string, recs []domain.ReorderRecommendation) error {
	f := excelize.NewFile()
	defer f.Close()

	byWarehouse := make(map[string][]domain.ReorderRecommendation)
	var warehouses []string
	for _, r := range recs {
		if !r.NeedsReorder {
			continue
		}
		if _, ok := byWarehouse[r.WarehouseID]; !ok {
			warehouses = append(warehouses, r.WarehouseID)
		}
		byWarehouse[r.WarehouseID] = append(byWarehouse[r.WarehouseID], r)
	}

	defaultSheet := f.GetSheetName(0)
	if len(warehouses) == 0 {
		if err := writeSheet(f, defaultSheet, nil); err != nil {
			return err
		}
		return f.SaveAs(path)
	}

	used := make(map[string]bool)
	for i, wh := range warehouses {
		name := sheetName(wh, used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, byWarehouse[wh]); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func writeSheet(f *excelize.File, sheet string, recs []domain.ReorderRecommendation) error {
	header := make([]interface{}, len(workbookHeader))
	for i, h := range workbookHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range recs {
		reorderBy := ""
		if r.ReorderByDate != nil {
			reorderBy = r.ReorderByDate.Format("2006-01-02")
		}
		orderCost, _ := r.OrderCost.Round(2).Float64()
		row := []interface{}{
			r.ArticleID, r.Supplier, string(r.ABCClass), r.Quantity, r.ReorderPoint, r.SafetyStock,
			r.RecommendedOrderQuantity, orderCost, r.DaysUntilStockout, reorderBy, r.Priority,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return nil
}

// sheetName makes a warehouse id a valid, unique sheet name.
func sheetName(warehouseID string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, warehouseID)
	if name == "" {
		name = "warehouse"
	}
	if r := []rune(name); len(r) > 28 {
		name = string(r[:28])
	}
	base := name
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s~%d", base, n)
	}
	used[name] = true
	return name
}
