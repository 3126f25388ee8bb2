package main

import (
	"github.com/juju/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// plotLatency draws one group of bars per operation and one bar per structure.
func plotLatency(results []BenchResult, path string) error {
	var ops, names []string
	lat := make(map[string]map[string]float64)
	for _, r := range results {
		if _, ok := lat[r.Name]; !ok {
			lat[r.Name] = make(map[string]float64)
			names = append(names, r.Name)
		}
		if !contains(ops, r.Operation) {
			ops = append(ops, r.Operation)
		}
		lat[r.Name][r.Operation] = float64(r.LatencyNs)
	}
	if len(names) == 0 {
		return errors.NotValidf("empty result set")
	}

	p := plot.New()
	p.Title.Text = "Index latency per operation"
	p.Y.Label.Text = "ns/op"

	width := vg.Points(60 / float64(len(names)))
	for i, name := range names {
		vals := make(plotter.Values, len(ops))
		for j, op := range ops {
			vals[j] = lat[name][op]
		}
		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return errors.Annotatef(err, "bars for %s", name)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(float64(i)-float64(len(names)-1)/2) * width
		p.Add(bars)
		p.Legend.Add(name, bars)
	}
	p.Legend.Top = true
	p.NominalX(ops...)

	return errors.Annotatef(p.Save(vg.Length(40+15*len(ops))*vg.Millimeter, 100*vg.Millimeter, path), "save plot %s", path)
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
