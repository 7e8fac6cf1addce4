package charts

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

// ChartGenerator генерирует графики по записям пользователя
type ChartGenerator struct {
	Width  int
	Height int
}

// NewChartGenerator создает новый генератор графиков
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{Width: 1200, Height: 600}
}

func (g *ChartGenerator) background() chart.Style {
	return chart.Style{
		Padding: chart.Box{
			Top:    50,
			Left:   50,
			Right:  50,
			Bottom: 50,
		},
		FillColor: chart.ColorWhite,
	}
}

func axisStyle() chart.Style {
	return chart.Style{
		FontSize:  12,
		FontColor: chart.ColorBlack,
	}
}

// RunningBalance строит график баланса после каждой записи. Баланс
// отсчитывается от нуля, записи идут в порядке номеров. Для пустого
// списка возвращает nil без ошибки.
func (g *ChartGenerator) RunningBalance(records []model.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, nil
	}

	xValues := make([]float64, 0, len(records)+1)
	yValues := make([]float64, 0, len(records)+1)
	xValues = append(xValues, 0)
	yValues = append(yValues, 0)

	var balance int64
	for i, r := range records {
		balance += r.Amount
		xValues = append(xValues, float64(i+1))
		yValues = append(yValues, float64(balance))
	}

	yAxis := chart.YAxis{
		ValueFormatter: func(v interface{}) string {
			return fmt.Sprintf("%.0f$", v.(float64))
		},
		Style: axisStyle(),
	}
	// go-chart не рисует ось с нулевым диапазоном
	if lo, hi := bounds(yValues); lo == hi {
		yAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	graph := chart.Chart{
		Title:      "Баланс",
		Width:      g.Width,
		Height:     g.Height,
		Background: g.background(),
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("No.%.0f", v.(float64))
			},
			Style: axisStyle(),
		},
		YAxis: yAxis,
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Баланс",
				XValues: xValues,
				YValues: yValues,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 3,
				},
			},
		},
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(&graph, axisStyle()),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render balance chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// ExpenseShare строит круговую диаграмму расходов по категориям.
// Учитываются только записи с отрицательной суммой; если таких нет,
// возвращает nil без ошибки.
func (g *ChartGenerator) ExpenseShare(records []model.Record) ([]byte, error) {
	totals := make(map[string]float64)
	var total float64
	for _, r := range records {
		if r.Amount >= 0 {
			continue
		}
		name := r.Category
		if name == "" {
			name = r.Description
		}
		totals[name] += float64(-r.Amount)
		total += float64(-r.Amount)
	}
	if total == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]chart.Value, 0, len(names))
	for _, name := range names {
		amount := totals[name]
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %.0f$ (%.1f%%)", name, amount, amount/total*100),
			Value: amount,
			Style: axisStyle(),
		})
	}

	pie := chart.PieChart{
		Title:      "Расходы по категориям",
		Width:      g.Height,
		Height:     g.Height,
		Values:     values,
		Background: g.background(),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render expense chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
