package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/twopeaks/controlroom/internal/config"
	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/llm"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/sheets"
)

const (
	financeTemperature = 0.2
	financePreviewRows = 50

	DefaultFinanceWindow = 60
)

var financeColumns = []string{"date", "region", "revenue", "orders", "ad_spend", "cost_of_goods", "refunds"}

// LoadFinanceCSV parses the daily finance export. Column order is free;
// header names are matched case-insensitively.
func LoadFinanceCSV(r io.Reader) ([]model.FinanceDay, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read finance header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[sheets.NormalizeHeader(h)] = i
	}
	for _, col := range financeColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("finance csv missing column %q", col)
		}
	}

	var days []model.FinanceDay
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("finance csv line %d: %w", line, err)
		}
		day, err := parseFinanceRow(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("finance csv line %d: %w", line, err)
		}
		days = append(days, day)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

func parseFinanceRow(rec []string, idx map[string]int) (model.FinanceDay, error) {
	field := func(col string) string { return strings.TrimSpace(rec[idx[col]]) }
	num := func(col string) (float64, error) {
		v, err := strconv.ParseFloat(field(col), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", col, err)
		}
		return v, nil
	}

	var day model.FinanceDay
	var err error
	if day.Date, err = time.Parse("2006-01-02", field("date")); err != nil {
		return day, fmt.Errorf("date: %w", err)
	}
	day.Region = field("region")
	if day.Revenue, err = num("revenue"); err != nil {
		return day, err
	}
	if day.Orders, err = strconv.Atoi(field("orders")); err != nil {
		return day, fmt.Errorf("orders: %w", err)
	}
	if day.AdSpend, err = num("ad_spend"); err != nil {
		return day, err
	}
	if day.CostOfGoods, err = num("cost_of_goods"); err != nil {
		return day, err
	}
	if day.Refunds, err = num("refunds"); err != nil {
		return day, err
	}
	return day, nil
}

// lastDays keeps the rows of the most recent window distinct dates.
// days must be sorted by date.
func lastDays(days []model.FinanceDay, window int) []model.FinanceDay {
	if window <= 0 || len(days) == 0 {
		return days
	}
	seen := 0
	for i := len(days) - 1; i >= 0; i-- {
		if i == len(days)-1 || !days[i].Date.Equal(days[i+1].Date) {
			seen++
			if seen > window {
				return days[i+1:]
			}
		}
	}
	return days
}

// ComputeFinanceMetrics summarises the last window days of rows.
func ComputeFinanceMetrics(days []model.FinanceDay, window int) model.FinanceMetrics {
	days = lastDays(days, window)
	var m model.FinanceMetrics
	if len(days) == 0 {
		return m
	}

	dates := map[time.Time]bool{}
	var roasSum float64
	roasRows := 0
	for _, d := range days {
		dates[d.Date] = true
		m.TotalRevenue += d.Revenue
		m.TotalOrders += d.Orders
		m.TotalProfit += d.Profit()
		if d.AdSpend > 0 {
			roasSum += d.Revenue / d.AdSpend
			roasRows++
		}
	}
	m.Days = len(dates)
	if roasRows > 0 {
		m.AvgROAS = round2(roasSum / float64(roasRows))
	}
	if m.TotalOrders > 0 {
		m.AvgOrderValue = round2(m.TotalRevenue / float64(m.TotalOrders))
	}
	if m.TotalRevenue != 0 {
		m.ProfitMarginPct = round2(m.TotalProfit / m.TotalRevenue * 100)
	}

	latest := days[len(days)-1].Date
	var latestAds float64
	for _, d := range days {
		if d.Date.Equal(latest) {
			m.LatestRevenue += d.Revenue
			m.LatestProfit += d.Profit()
			latestAds += d.AdSpend
		}
	}
	m.LatestDay = latest
	if latestAds > 0 {
		m.LatestROAS = round2(m.LatestRevenue / latestAds)
	}
	m.TotalRevenue = round2(m.TotalRevenue)
	m.TotalProfit = round2(m.TotalProfit)
	m.LatestRevenue = round2(m.LatestRevenue)
	m.LatestProfit = round2(m.LatestProfit)
	return m
}

// SummarizeFinance is the deterministic one paragraph summary.
func SummarizeFinance(days []model.FinanceDay) string {
	if len(days) == 0 {
		return "No financial data available."
	}
	var revenue, ads float64
	orders := 0
	byRegion := map[string]float64{}
	dates := map[time.Time]bool{}
	for _, d := range days {
		revenue += d.Revenue
		ads += d.AdSpend
		orders += d.Orders
		byRegion[d.Region] += d.Revenue
		dates[d.Date] = true
	}
	top, topRevenue := "", -1.0
	for region, r := range byRegion {
		if r > topRevenue || (r == topRevenue && region < top) {
			top, topRevenue = region, r
		}
	}
	roas := 0.0
	if ads > 0 {
		roas = revenue / ads
	}
	return fmt.Sprintf("Revenue for the past %d days totals $%.2f across %d orders. Average ROAS stands at %.2fx. "+
		"%s continues to be the top-performing region. Focus on scaling ad spend efficiency and introducing repeat-customer rewards.",
		len(dates), revenue, orders, roas, top)
}

func round2(v float64) float64 {
	return float64(int64(v*100+copySign(0.5, v))) / 100
}

func copySign(mag, sign float64) float64 {
	if sign < 0 {
		return -mag
	}
	return mag
}

// FinanceService answers questions over the loaded finance export.
type FinanceService struct {
	Days   []model.FinanceDay
	LLM    llm.Client
	Brand  config.Brand
	Window int
}

// NewFinanceService loads the CSV at path. A missing file yields an empty
// dataset.
func NewFinanceService(path string, client llm.Client, brand config.Brand) (*FinanceService, error) {
	svc := &FinanceService{LLM: client, Brand: brand, Window: DefaultFinanceWindow}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return svc, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if svc.Days, err = LoadFinanceCSV(f); err != nil {
		return nil, err
	}
	return svc, nil
}

type FinanceReport struct {
	Metrics model.FinanceMetrics `json:"metrics"`
	Summary string               `json:"summary"`
}

func (s *FinanceService) Report(window int) FinanceReport {
	if window <= 0 {
		window = s.Window
	}
	return FinanceReport{
		Metrics: ComputeFinanceMetrics(s.Days, window),
		Summary: SummarizeFinance(lastDays(s.Days, window)),
	}
}

// Ask answers question using a CSV preview of the first rows.
func (s *FinanceService) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", appErrors.NewInvalidField("question", "is required")
	}
	prompt := RenderTemplate(s.Brand.FinancePrompt, map[string]string{
		"csv_preview": s.csvPreview(financePreviewRows),
		"question":    question,
	})
	answer, err := s.LLM.Complete(ctx, llm.Prompt(prompt, financeTemperature))
	if err != nil {
		return "", fmt.Errorf("finance answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func (s *FinanceService) csvPreview(rows int) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(financeColumns)
	for i, d := range s.Days {
		if i == rows {
			break
		}
		_ = w.Write([]string{
			d.Date.Format("2006-01-02"), d.Region,
			strconv.FormatFloat(d.Revenue, 'f', 2, 64), strconv.Itoa(d.Orders),
			strconv.FormatFloat(d.AdSpend, 'f', 2, 64), strconv.FormatFloat(d.CostOfGoods, 'f', 2, 64),
			strconv.FormatFloat(d.Refunds, 'f', 2, 64),
		})
	}
	w.Flush()
	return buf.String()
}
