package domain

import "time"

// StatusFilter narrows inventory status queries.
type StatusFilter struct {
	TenantID    string     `json:"tenant_id"`
	WarehouseID string     `json:"warehouse_id"`
	StockLevel  StockLevel `json:"stock_level"`
	ABCClass    ABCClass   `json:"abc_class"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
}

// RecommendationFilter narrows reorder recommendation queries.
type RecommendationFilter struct {
	TenantID     string `json:"tenant_id"`
	WarehouseID  string `json:"warehouse_id"`
	NeedsReorder *bool  `json:"needs_reorder"`
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
}

// ForecastFilter narrows demand forecast queries.
type ForecastFilter struct {
	TenantID  string    `json:"tenant_id"`
	ArticleID string    `json:"article_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

// RollupFilter narrows rollup queries.
type RollupFilter struct {
	TenantID    string      `json:"tenant_id"`
	Level       RollupLevel `json:"level"`
	WarehouseID string      `json:"warehouse_id"`

	// RunID is the publication the cached rollups were read from.
	RunID string `json:"-"`
}

// Publication is the marker written with each atomic output swap.
type Publication struct {
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	WarehouseID string    `json:"warehouse_id" db:"warehouse_id"`
	RunID       string    `json:"run_id" db:"run_id"`
	AsOf        time.Time `json:"as_of" db:"as_of"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	Articles    int       `json:"articles" db:"articles"`
}

// Page is a paginated result set.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}
