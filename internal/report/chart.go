package report

import (
	"bytes"
	"crypto-oracle-bot/internal/types"
	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"strings"
)

var (
	gainColor = drawing.Color{R: 46, G: 204, B: 113, A: 255}
	lossColor = drawing.Color{R: 231, G: 76, B: 60, A: 255}
	textColor = drawing.Color{R: 200, G: 200, B: 200, A: 255}
	darkGray  = drawing.Color{R: 55, G: 55, B: 55, A: 255}
)

// renderChart draws the 24h change of every mover as a PNG bar chart
func renderChart(movers []types.Ticker) ([]byte, error) {
	var bars []chart.Value
	for _, t := range movers {
		if !t.Quote.Change24h.Valid {
			continue
		}
		change, _ := t.Quote.Change24h.Decimal.Float64()
		color := gainColor
		if change < 0 {
			color = lossColor
		}
		bars = append(bars, chart.Value{
			Label: strings.ToUpper(t.Symbol),
			Value: change,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}
	if len(bars) == 0 {
		return nil, errors.New("no 24h changes to draw")
	}

	graph := chart.BarChart{
		Title:      "Top movers, 24h change (%)",
		TitleStyle: chart.Style{FontColor: textColor},
		Background: chart.Style{
			FillColor: darkGray,
			Padding:   chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		Canvas:       chart.Style{FillColor: darkGray},
		Width:        1200,
		Height:       600,
		BarWidth:     60,
		UseBaseValue: true,
		BaseValue:    0,
		XAxis:        chart.Style{FontColor: textColor, StrokeColor: textColor},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: textColor, StrokeColor: textColor},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "could not render chart")
	}
	return buf.Bytes(), nil
}
