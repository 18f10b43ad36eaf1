// Package reports derives read-only analytical tables from sales activity.
// Everything here is recomputed from source rows, cached behind a versioned
// Redis key and never written back to the database.
package reports

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Activity is one customer's purchase history condensed for reporting.
type Activity struct {
	CustomerID   int64
	Name         string
	Total        float64
	InvoiceDates []time.Time
}

// RFMRow scores one customer on recency, frequency and monetary value.
type RFMRow struct {
	CustomerID     int64   `json:"customer_id"`
	Name           string  `json:"name"`
	RecencyDays    int     `json:"recency_days"`
	Frequency      int     `json:"frequency"`
	Monetary       float64 `json:"monetary"`
	RecencyScore   int     `json:"recency_score"`
	FrequencyScore int     `json:"frequency_score"`
	MonetaryScore  int     `json:"monetary_score"`
	Segment        string  `json:"segment"`
}

// ChurnRow flags customers whose purchase gap outgrew their own cadence.
type ChurnRow struct {
	CustomerID     int64     `json:"customer_id"`
	Name           string    `json:"name"`
	LastPurchase   time.Time `json:"last_purchase"`
	DaysSince      int       `json:"days_since"`
	AvgCadenceDays float64   `json:"avg_cadence_days"`
	Risk           string    `json:"risk"`
}

// FrequencyRow summarises purchase counts over a customer's active span.
type FrequencyRow struct {
	CustomerID    int64     `json:"customer_id"`
	Name          string    `json:"name"`
	InvoiceCount  int       `json:"invoice_count"`
	FirstPurchase time.Time `json:"first_purchase"`
	LastPurchase  time.Time `json:"last_purchase"`
	PerMonth      float64   `json:"per_month"`
}

// Churn risk bands.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// defaultCadenceDays stands in for customers with a single purchase, where
// no cadence can be measured yet.
const defaultCadenceDays = 30.0

// BuildRFM scores every customer with purchases. Scores are rank quintiles
// within the population; recency ranks inverted, a recent purchase scores 5.
func BuildRFM(activities []Activity, now time.Time) []RFMRow {
	var rows []RFMRow
	for _, a := range activities {
		if len(a.InvoiceDates) == 0 {
			continue
		}
		last := latest(a.InvoiceDates)
		rows = append(rows, RFMRow{
			CustomerID:  a.CustomerID,
			Name:        a.Name,
			RecencyDays: int(now.Sub(last).Hours() / 24),
			Frequency:   len(a.InvoiceDates),
			Monetary:    a.Total,
		})
	}

	n := len(rows)
	rankScore(n, func(i, j int) bool { return rows[i].RecencyDays > rows[j].RecencyDays },
		func(i, score int) { rows[i].RecencyScore = score })
	rankScore(n, func(i, j int) bool { return rows[i].Frequency < rows[j].Frequency },
		func(i, score int) { rows[i].FrequencyScore = score })
	rankScore(n, func(i, j int) bool { return rows[i].Monetary < rows[j].Monetary },
		func(i, score int) { rows[i].MonetaryScore = score })

	for i := range rows {
		rows[i].Segment = fmt.Sprintf("%d%d%d", rows[i].RecencyScore, rows[i].FrequencyScore, rows[i].MonetaryScore)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CustomerID < rows[j].CustomerID })
	return rows
}

// rankScore assigns quintile scores 1..5 by ascending rank under less.
func rankScore(n int, less func(i, j int) bool, assign func(i, score int)) {
	if n == 0 {
		return
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return less(order[a], order[b]) })
	for rank, idx := range order {
		score := 1 + rank*5/n
		if score > 5 {
			score = 5
		}
		assign(idx, score)
	}
}

// BuildChurn compares each customer's silence against their own average
// purchase cadence.
func BuildChurn(activities []Activity, now time.Time) []ChurnRow {
	var rows []ChurnRow
	for _, a := range activities {
		if len(a.InvoiceDates) == 0 {
			continue
		}
		last := latest(a.InvoiceDates)
		cadence := cadenceDays(a.InvoiceDates)
		daysSince := now.Sub(last).Hours() / 24

		risk := RiskLow
		switch {
		case daysSince > 3*cadence:
			risk = RiskHigh
		case daysSince > 2*cadence:
			risk = RiskMedium
		}
		rows = append(rows, ChurnRow{
			CustomerID:     a.CustomerID,
			Name:           a.Name,
			LastPurchase:   last,
			DaysSince:      int(daysSince),
			AvgCadenceDays: math.Round(cadence*10) / 10,
			Risk:           risk,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DaysSince > rows[j].DaysSince })
	return rows
}

// BuildFrequency summarises purchase counts per customer.
func BuildFrequency(activities []Activity, now time.Time) []FrequencyRow {
	var rows []FrequencyRow
	for _, a := range activities {
		if len(a.InvoiceDates) == 0 {
			continue
		}
		first, last := earliest(a.InvoiceDates), latest(a.InvoiceDates)
		months := now.Sub(first).Hours() / 24 / 30
		if months < 1 {
			months = 1
		}
		rows = append(rows, FrequencyRow{
			CustomerID:    a.CustomerID,
			Name:          a.Name,
			InvoiceCount:  len(a.InvoiceDates),
			FirstPurchase: first,
			LastPurchase:  last,
			PerMonth:      math.Round(float64(len(a.InvoiceDates))/months*100) / 100,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].InvoiceCount > rows[j].InvoiceCount })
	return rows
}

func cadenceDays(dates []time.Time) float64 {
	if len(dates) < 2 {
		return defaultCadenceDays
	}
	first, last := earliest(dates), latest(dates)
	return last.Sub(first).Hours() / 24 / float64(len(dates)-1)
}

func earliest(dates []time.Time) time.Time {
	min := dates[0]
	for _, d := range dates[1:] {
		if d.Before(min) {
			min = d
		}
	}
	return min
}

func latest(dates []time.Time) time.Time {
	max := dates[0]
	for _, d := range dates[1:] {
		if d.After(max) {
			max = d
		}
	}
	return max
}
