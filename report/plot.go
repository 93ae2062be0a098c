package report

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/perfgo/perfsweep/model"
)

// ErrNothingToPlot is returned when a dataset has no values for a chart.
var ErrNothingToPlot = errors.New("nothing to plot")

var palette = []color.RGBA{
	{0, 114, 178, 255},
	{213, 94, 0, 255},
	{0, 158, 115, 255},
	{204, 121, 167, 255},
	{230, 159, 0, 255},
	{86, 180, 233, 255},
	{240, 228, 66, 255},
}

var idealColor = color.RGBA{128, 128, 128, 255}

// metric selects the plotted value of a record; ok is false when the record
// has no value.
type metric func(r model.MetricRecord) (float64, bool)

func measuredTime(r model.MetricRecord) (float64, bool) {
	return r.MeasuredTimeMs, true
}

func auxTime(name string) metric {
	return func(r model.MetricRecord) (float64, bool) {
		v, ok := r.AuxTimes[name]
		return v, ok
	}
}

// series is one labelled line of a chart.
type series struct {
	label string
	value metric
}

func speedup(r model.MetricRecord) (float64, bool) {
	if r.Speedup == nil {
		return 0, false
	}
	return *r.Speedup, true
}

func efficiency(r model.MetricRecord) (float64, bool) {
	if r.Efficiency == nil {
		return 0, false
	}
	return *r.Efficiency, true
}

// WriteCharts renders every chart the dataset has data for into dir and
// returns the file names written.
func WriteCharts(dir string, ds model.Dataset) ([]string, error) {
	charts := []struct {
		suffix string
		plot   func(model.Dataset, string) error
	}{
		{"_time.png", PlotTime},
		{"_speedup.png", PlotSpeedup},
		{"_efficiency.png", PlotEfficiency},
		{"_balance.png", PlotBalance},
		{"_vs_size.png", PlotVsSize},
	}

	var written []string
	for _, c := range charts {
		name := ds.Family + c.suffix
		err := c.plot(ds, filepath.Join(dir, name))
		if errors.Is(err, ErrNothingToPlot) {
			continue
		}
		if err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

// PlotTime draws measured time against parallelism, one line per group.
func PlotTime(ds model.Dataset, path string) error {
	p := plot.New()
	p.Title.Text = ds.Family + ": measured time"
	p.X.Label.Text = "parallelism"
	p.Y.Label.Text = "time (ms)"

	if err := addGroupLines(p, ds.Records, measuredTime); err != nil {
		return err
	}
	return save(p, path)
}

// PlotSpeedup draws speedup against parallelism with the ideal linear
// speedup for reference.
func PlotSpeedup(ds model.Dataset, path string) error {
	p := plot.New()
	p.Title.Text = ds.Family + ": speedup"
	p.X.Label.Text = "parallelism"
	p.Y.Label.Text = "speedup"

	if err := addGroupLines(p, ds.Records, speedup); err != nil {
		return err
	}

	var ideal plotter.XYs
	for _, x := range parallelismLevels(ds.Records) {
		ideal = append(ideal, plotter.XY{X: float64(x), Y: float64(x)})
	}
	line, err := plotter.NewLine(ideal)
	if err != nil {
		return fmt.Errorf("failed to create ideal line: %w", err)
	}
	line.Color = idealColor
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(line)
	p.Legend.Add("ideal", line)

	return save(p, path)
}

// PlotEfficiency draws efficiency against parallelism.
func PlotEfficiency(ds model.Dataset, path string) error {
	p := plot.New()
	p.Title.Text = ds.Family + ": efficiency"
	p.X.Label.Text = "parallelism"
	p.Y.Label.Text = "efficiency"
	p.Y.Min = 0

	if err := addGroupLines(p, ds.Records, efficiency); err != nil {
		return err
	}
	return save(p, path)
}

// PlotBalance draws the per-worker times of the record with the highest
// parallelism that has a breakdown.
func PlotBalance(ds model.Dataset, path string) error {
	var target *model.MetricRecord
	for i := range ds.Records {
		r := &ds.Records[i]
		if len(r.PerWorkerBreakdown) == 0 {
			continue
		}
		if target == nil || r.Configuration.Parallelism > target.Configuration.Parallelism {
			target = r
		}
	}
	if target == nil {
		return ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: per-worker time (%s)", ds.Family, target.Configuration)
	p.X.Label.Text = "worker"
	p.Y.Label.Text = "time (ms)"

	bars, err := plotter.NewBarChart(plotter.Values(target.PerWorkerBreakdown), vg.Points(20))
	if err != nil {
		return fmt.Errorf("failed to create bar chart: %w", err)
	}
	bars.Color = palette[0]
	p.Add(bars)

	ticks := make([]plot.Tick, len(target.PerWorkerBreakdown))
	for i := range ticks {
		ticks[i] = plot.Tick{Value: float64(i), Label: fmt.Sprint(i)}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	return save(p, path)
}

// PlotVsSize draws measured time and every auxiliary time against problem
// size at the highest parallelism level. It needs at least two problem sizes.
func PlotVsSize(ds model.Dataset, path string) error {
	levels := parallelismLevels(ds.Records)
	if len(levels) == 0 {
		return ErrNothingToPlot
	}
	top := levels[len(levels)-1]

	var records []model.MetricRecord
	var names []string
	seen := make(map[string]bool)
	for _, r := range ds.Records {
		if r.Configuration.Parallelism != top {
			continue
		}
		records = append(records, r)
		for name := range r.AuxTimes {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	if len(records) < 2 {
		return ErrNothingToPlot
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Configuration.ProblemSize < records[j].Configuration.ProblemSize
	})
	sort.Strings(names)

	lines := []series{{"measured", measuredTime}}
	for _, name := range names {
		lines = append(lines, series{name, auxTime(name)})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: time vs problem size (parallelism %d)", ds.Family, top)
	p.X.Label.Text = "problem size"
	p.Y.Label.Text = "time (ms)"
	p.Legend.Top = true

	for i, s := range lines {
		var pts plotter.XYs
		for _, r := range records {
			if v, ok := s.value(r); ok {
				pts = append(pts, plotter.XY{X: float64(r.Configuration.ProblemSize), Y: v})
			}
		}
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("failed to create line: %w", err)
		}
		c := palette[i%len(palette)]
		line.Color = c
		line.Width = vg.Points(2)
		points.Color = c
		p.Add(line, points)
		p.Legend.Add(s.label, line, points)
	}

	ticks := make([]plot.Tick, len(records))
	for i, r := range records {
		ticks[i] = plot.Tick{Value: float64(r.Configuration.ProblemSize), Label: fmt.Sprint(r.Configuration.ProblemSize)}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	return save(p, path)
}

func addGroupLines(p *plot.Plot, records []model.MetricRecord, value metric) error {
	groups := make(map[int64]plotter.XYs)
	for _, r := range records {
		v, ok := value(r)
		if !ok {
			continue
		}
		groups[r.GroupKey] = append(groups[r.GroupKey], plotter.XY{X: float64(r.Configuration.Parallelism), Y: v})
	}
	if len(groups) == 0 {
		return ErrNothingToPlot
	}

	keys := make([]int64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for i, k := range keys {
		pts := groups[k]
		sort.Slice(pts, func(a, b int) bool { return pts[a].X < pts[b].X })

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("failed to create line: %w", err)
		}
		c := palette[i%len(palette)]
		line.Color = c
		line.Width = vg.Points(2)
		points.Color = c
		p.Add(line, points)
		if len(keys) > 1 || k != 0 {
			p.Legend.Add(fmt.Sprintf("size %d", k), line, points)
		}
	}
	p.Legend.Top = true

	var ticks []plot.Tick
	for _, x := range parallelismLevels(records) {
		ticks = append(ticks, plot.Tick{Value: float64(x), Label: fmt.Sprint(x)})
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	return nil
}

func parallelismLevels(records []model.MetricRecord) []int {
	seen := make(map[int]bool)
	var levels []int
	for _, r := range records {
		if !seen[r.Configuration.Parallelism] {
			seen[r.Configuration.Parallelism] = true
			levels = append(levels, r.Configuration.Parallelism)
		}
	}
	sort.Ints(levels)
	return levels
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save chart %s: %w", path, err)
	}
	return nil
}
