package service

import (
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

const (
	DateLayout       = "2006-01-02"
	defaultSalesDays = 7
	maxSalesDays     = 366
)

// AnalyticsService produces synthetic but stable sales figures: the same
// marketplace and day always yield the same numbers.
type AnalyticsService struct {
	now func() time.Time
}

func NewAnalyticsService() *AnalyticsService {
	return &AnalyticsService{now: time.Now}
}

// Sales summarises [from, to]. Empty bounds default to the last week; an
// empty marketplace aggregates all of them.
func (s *AnalyticsService) Sales(marketplace, from, to string) (*models.SalesSummary, error) {
	var m models.Marketplace
	if marketplace != "" {
		parsed, err := models.ParseMarketplace(marketplace)
		if err != nil {
			return nil, util.NewValidationError(http.StatusBadRequest, map[string][]string{
				"marketplace": {err.Error()},
			})
		}
		m = parsed
	}

	start, end, err := s.period(from, to)
	if err != nil {
		return nil, err
	}

	summary := &models.SalesSummary{
		Marketplace: m,
		From:        start.Format(DateLayout),
		To:          end.Format(DateLayout),
		Days:        []models.SalesDay{},
	}
	markets := models.Marketplaces
	if m != "" {
		markets = []models.Marketplace{m}
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := models.SalesDay{Date: d.Format(DateLayout)}
		for _, mp := range markets {
			orders, units, revenue := daily(mp, day.Date)
			day.Orders += orders
			day.Units += units
			day.Revenue += revenue
		}
		day.Revenue = round2(day.Revenue)

		summary.Orders += day.Orders
		summary.Units += day.Units
		summary.Revenue += day.Revenue
		summary.Days = append(summary.Days, day)
	}
	summary.Revenue = round2(summary.Revenue)

	return summary, nil
}

// WriteCSV writes one header row and one row per day.
func (s *AnalyticsService) WriteCSV(w io.Writer, summary *models.SalesSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "orders", "units", "revenue"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, d := range summary.Days {
		row := []string{
			d.Date,
			strconv.Itoa(d.Orders),
			strconv.Itoa(d.Units),
			strconv.FormatFloat(d.Revenue, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names the CSV attachment for summary.
func ExportFilename(summary *models.SalesSummary) string {
	scope := "all"
	if summary.Marketplace != "" {
		scope = string(summary.Marketplace)
	}
	return fmt.Sprintf("sales_%s_%s_%s.csv", scope, summary.From, summary.To)
}

func (s *AnalyticsService) period(from, to string) (time.Time, time.Time, error) {
	fields := make(map[string][]string)
	parse := func(name, v string, def time.Time) time.Time {
		if v == "" {
			return def
		}
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			fields[name] = []string{"Date has wrong format. Use YYYY-MM-DD."}
			return def
		}
		return t
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	end := parse("to", to, today)
	start := parse("from", from, end.AddDate(0, 0, -(defaultSalesDays - 1)))

	if len(fields) == 0 {
		switch {
		case end.Before(start):
			fields["to"] = []string{"Must not be before from."}
		case int(end.Sub(start).Hours()/24) >= maxSalesDays:
			fields["from"] = []string{fmt.Sprintf("Period must not exceed %d days.", maxSalesDays)}
		}
	}
	if len(fields) > 0 {
		return time.Time{}, time.Time{}, util.NewValidationError(http.StatusBadRequest, fields)
	}
	return start, end, nil
}

func daily(m models.Marketplace, date string) (orders, units int, revenue float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(string(m) + "|" + date))
	sum := h.Sum64()

	orders = int(sum % 40)
	units = orders + int((sum>>8)%15)
	price := 300 + float64((sum>>16)%2700)
	return orders, units, round2(float64(units) * price)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
