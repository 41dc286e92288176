package service

import "github.com/damon-houk/rate-history-sync/internal/domain/entity"

// BuildChartSeries lays out the base and target rates of data over ascending
// dates. A date whose snapshot lacks a currency contributes 0 to that series.
func BuildChartSeries(data entity.HistoricalRates, base, target string) entity.ChartSeries {
	labels := data.SortedDates()

	series := entity.ChartSeries{
		Labels:         labels,
		BaseCurrency:   base,
		TargetCurrency: target,
		BaseValues:     make([]float64, len(labels)),
		TargetValues:   make([]float64, len(labels)),
	}

	for i, date := range labels {
		series.BaseValues[i] = data[date][base]
		series.TargetValues[i] = data[date][target]
	}

	return series
}
