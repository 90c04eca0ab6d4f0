package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// parseWindow maps a chart window selector to its day count.
func parseWindow(s string) (int, error) {
	switch s {
	case "7d":
		return 7, nil
	case "30d", "":
		return 30, nil
	case "365d":
		return 365, nil
	}
	return 0, fmt.Errorf("invalid window %q", s)
}

// normalizeDay truncates a timestamp to local midnight.
func normalizeDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// buildChartSeries groups transactions into `days` contiguous calendar-day
// buckets ending on `now` (inclusive). Every bucket is present even when no
// transaction falls in it; amounts >= 0 accrue to income, the rest to
// expense by absolute value. Transactions outside the window are ignored.
// The returned series is in chronological order.
func buildChartSeries(txs []Transaction, days int, now time.Time) []ChartPoint {
	start := normalizeDay(now).AddDate(0, 0, -(days - 1))

	series := make([]ChartPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format(dateLayout)
		series[i] = ChartPoint{Date: key, Income: decimal.Zero, Expense: decimal.Zero}
		index[key] = i
	}

	for _, t := range txs {
		key := normalizeDay(t.Date.Time).Format(dateLayout)
		i, ok := index[key]
		if !ok {
			continue
		}
		if t.Amount.IsNegative() {
			series[i].Expense = series[i].Expense.Add(t.Amount.Abs())
		} else {
			series[i].Income = series[i].Income.Add(t.Amount)
		}
	}
	return series
}
