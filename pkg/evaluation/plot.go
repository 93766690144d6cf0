package evaluation

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartHeight = "500px"
	accuracyMax = 100
	hundredths  = 100
)

// Chart builds a bar chart of the per-tag accuracy of r, in percent.
func (r *Report) Chart(title string) *charts.Bar {
	scores := r.Tags()

	labels := make([]string, len(scores))
	accuracy := make([]opts.BarData, len(scores))
	totals := make([]opts.BarData, len(scores))

	for idx, s := range scores {
		labels[idx] = s.Tag
		accuracy[idx] = opts.BarData{Value: percentOf(s.Accuracy())}
		totals[idx] = opts.BarData{Value: s.Total}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d trees, %d of %d heads correct", r.Trees, r.Correct, r.Total),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Accuracy (%)", Max: accuracyMax}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("Accuracy", accuracy)
	bar.AddSeries("Nodes", totals)

	return bar
}

// WriteChart renders the chart of r as a standalone HTML page.
func (r *Report) WriteChart(w io.Writer, title string) error {
	err := r.Chart(title).Render(w)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	return nil
}

func percentOf(ratio float64) float64 {
	return math.Round(ratio*accuracyMax*hundredths) / hundredths
}
