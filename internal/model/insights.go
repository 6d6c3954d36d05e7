package model

import "time"

const (
	SegmentLoyalist     = "Loyalist"
	SegmentHighValueNew = "High-Value Newcomer"
	SegmentFirstTime    = "First-time Buyer"
	SegmentAtRisk       = "At-Risk Repeat"
	SegmentEngaged      = "Engaged Customer"
)

// CustomerSegment aggregates one customer's orders.
type CustomerSegment struct {
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	TotalOrders    int       `json:"total_orders"`
	TotalSpent     float64   `json:"total_spent"`
	AvgOrderValue  float64   `json:"avg_order_value"`
	LastOrder      time.Time `json:"last_order"`
	RecencyDays    int       `json:"recency_days"`
	Segment        string    `json:"segment"`
	InsightSummary string    `json:"insight_summary"`
}

// FinanceDay is one row of the daily finance export.
type FinanceDay struct {
	Date        time.Time `json:"date"`
	Region      string    `json:"region"`
	Revenue     float64   `json:"revenue"`
	Orders      int       `json:"orders"`
	AdSpend     float64   `json:"ad_spend"`
	CostOfGoods float64   `json:"cost_of_goods"`
	Refunds     float64   `json:"refunds"`
}

func (d FinanceDay) Profit() float64 {
	return d.Revenue - (d.AdSpend + d.CostOfGoods + d.Refunds)
}

type FinanceMetrics struct {
	Days            int       `json:"days"`
	TotalRevenue    float64   `json:"total_revenue"`
	TotalOrders     int       `json:"total_orders"`
	TotalProfit     float64   `json:"total_profit"`
	AvgROAS         float64   `json:"avg_roas"`
	AvgOrderValue   float64   `json:"avg_order_value"`
	ProfitMarginPct float64   `json:"profit_margin_pct"`
	LatestDay       time.Time `json:"latest_day"`
	LatestRevenue   float64   `json:"latest_revenue"`
	LatestROAS      float64   `json:"latest_roas"`
	LatestProfit    float64   `json:"latest_profit"`
}
