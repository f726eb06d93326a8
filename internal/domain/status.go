package domain

import "strings"

// StockLevel bands the on-hand quantity against the article's min/max levels.
type StockLevel string

const (
	StockLevelOutOfStock StockLevel = "out_of_stock"
	StockLevelLow        StockLevel = "low"
	StockLevelMedium     StockLevel = "medium"
	StockLevelHigh       StockLevel = "high"
)

// StockLevels lists every band in dashboard order.
var StockLevels = []StockLevel{StockLevelOutOfStock, StockLevelLow, StockLevelMedium, StockLevelHigh}

// StockoutRisk classifies how soon an article runs out at the 30-day sales rate.
type StockoutRisk string

const (
	RiskStockout StockoutRisk = "stockout"
	RiskCritical StockoutRisk = "critical"
	RiskWarning  StockoutRisk = "warning"
	RiskNormal   StockoutRisk = "normal"
)

var StockoutRisks = []StockoutRisk{RiskStockout, RiskCritical, RiskWarning, RiskNormal}

// ABCClass is the value based segment of an article inside its warehouse.
type ABCClass string

const (
	ABCClassA ABCClass = "A"
	ABCClassB ABCClass = "B"
	ABCClassC ABCClass = "C"
	ABCClassD ABCClass = "D"
)

var ABCClasses = []ABCClass{ABCClassA, ABCClassB, ABCClassC, ABCClassD}

// Confidence is the forecast confidence tier derived from sales history depth.
type Confidence string

const (
	ConfidenceVeryLow Confidence = "very_low"
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
)

// RollupLevel tags the two rollup variants.
type RollupLevel string

const (
	RollupLevelWarehouse RollupLevel = "warehouse"
	RollupLevelCategory  RollupLevel = "category"
)

var stockLevelsByName = map[string]StockLevel{
	"out_of_stock": StockLevelOutOfStock,
	"low":          StockLevelLow,
	"medium":       StockLevelMedium,
	"high":         StockLevelHigh,
}

// ParseStockLevel returns the stock level for a label (case-insensitive).
func ParseStockLevel(label string) (StockLevel, bool) {
	level, ok := stockLevelsByName[strings.ToLower(strings.TrimSpace(label))]
	return level, ok
}

// ParseABCClass returns the ABC class for a label (case-insensitive).
func ParseABCClass(label string) (ABCClass, bool) {
	switch c := ABCClass(strings.ToUpper(strings.TrimSpace(label))); c {
	case ABCClassA, ABCClassB, ABCClassC, ABCClassD:
		return c, true
	}
	return "", false
}

// ParseRollupLevel returns the rollup level for a label (case-insensitive).
func ParseRollupLevel(label string) (RollupLevel, bool) {
	switch l := RollupLevel(strings.ToLower(strings.TrimSpace(label))); l {
	case RollupLevelWarehouse, RollupLevelCategory:
		return l, true
	}
	return "", false
}

// Rank orders ABC classes A < B < C < D for sorting.
func (c ABCClass) Rank() int {
	switch c {
	case ABCClassA:
		return 0
	case ABCClassB:
		return 1
	case ABCClassC:
		return 2
	default:
		return 3
	}
}
