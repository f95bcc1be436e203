// Package chart renders the dashboard data as standalone echarts HTML
// pages: the entity similarity heatmap, the communication network and the
// entity topic profiles.
package chart

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/commscope/backend/pkg/common"
	"github.com/commscope/backend/pkg/topic"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	width       = "1400px"
	height      = "900px"
	minSymbol   = 10
	maxSymbol   = 45
	repulsion   = 4000
	gravity     = .1
	edgeLength  = 120
	layoutForce = "force"
)

var scale = []string{"#f7fbff", "#6baed6", "#08306b"}

func base(title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: width, Height: height}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show:    true,
			Orient:  "vertical",
			Feature: &opts.ToolBoxFeature{SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{Show: true, Type: "png", Title: "Save"}},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
	}
}

// Heatmap builds the entity by entity similarity chart.
func Heatmap(m *common.SimilarityMatrix) *charts.HeatMap {
	hm := charts.NewHeatMap()
	lo, hi := math.Inf(1), math.Inf(-1)
	var data []opts.HeatMapData
	for y, row := range m.Matrix {
		for x, v := range row {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			data = append(data, opts.HeatMapData{Value: [3]any{x, y, v}})
		}
	}
	if len(data) == 0 {
		lo, hi = 0, 1
	}

	hm.SetGlobalOptions(append(base("Entity Similarity", fmt.Sprintf("%d entities", len(m.Entities))),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: m.Entities, AxisLabel: &opts.AxisLabel{Show: true, Rotate: 45, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: m.Entities, AxisLabel: &opts.AxisLabel{Show: true, Interval: "0"}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: true,
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: scale},
		}),
	)...)
	hm.SetXAxis(m.Entities).AddSeries("similarity", data)
	return hm
}

// Network builds a force layout of the communication links of g. Nodes
// are sized by the number of messages they took part in and grouped by
// sub type; parallel links are merged and weighted by their count.
func Network(g *common.Graph) *charts.Graph {
	nodes := g.NodeMap()
	degree := map[string]int{}
	type pair struct{ src, dst string }
	weights := map[pair]int{}
	var order []pair
	for _, l := range g.EdgeList() {
		src, dst := l.Source(), l.Target()
		if src == "" || dst == "" {
			continue
		}
		degree[src]++
		degree[dst]++
		p := pair{src, dst}
		if weights[p] == 0 {
			order = append(order, p)
		}
		weights[p]++
	}

	ids := make([]string, 0, len(degree))
	most := 1
	for id, d := range degree {
		ids = append(ids, id)
		most = max(most, d)
	}
	sort.Strings(ids)

	categories := []*opts.GraphCategory{}
	category := map[string]int{}
	var gn []opts.GraphNode
	for _, id := range ids {
		n := nodes[id]
		sub := n.GetOr("sub_type", "Unknown")
		c, ok := category[sub]
		if !ok {
			c = len(categories)
			category[sub] = c
			categories = append(categories, &opts.GraphCategory{Name: sub})
		}
		size := minSymbol + float64(maxSymbol-minSymbol)*float64(degree[id])/float64(most)
		gn = append(gn, opts.GraphNode{
			Name:       n.GetOr("name", id),
			Value:      float32(degree[id]),
			Category:   c,
			SymbolSize: math.Round(size),
		})
	}

	var gl []opts.GraphLink
	for _, p := range order {
		gl = append(gl, opts.GraphLink{
			Source: nodes[p.src].GetOr("name", p.src),
			Target: nodes[p.dst].GetOr("name", p.dst),
			Value:  float32(weights[p]),
		})
	}

	graph := charts.NewGraph()
	graph.SetGlobalOptions(append(base("Communication Network", fmt.Sprintf("%d entities, %d links", len(gn), len(gl))),
		charts.WithLegendOpts(opts.Legend{Show: true, Right: "5%"}),
	)...)
	graph.AddSeries("communication", gn, gl,
		charts.WithLabelOpts(opts.Label{Show: true, Position: "right"}),
		charts.WithLineStyleOpts(opts.LineStyle{Curveness: 0.1, Type: "solid"}),
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:             layoutForce,
			Force:              &opts.GraphForce{Repulsion: repulsion, Gravity: gravity, EdgeLength: edgeLength},
			Roam:               true,
			FocusNodeAdjacency: true,
			Categories:         categories,
		}),
	)
	return graph
}

// TopicProfiles builds an entity by topic heatmap from a topic report.
func TopicProfiles(r *topic.Report) *charts.HeatMap {
	entities := make([]string, 0, len(r.EntityTopicScores))
	for e := range r.EntityTopicScores {
		entities = append(entities, e)
	}
	sort.Strings(entities)

	labels := make([]string, len(r.Topics))
	for i, t := range r.Topics {
		labels[i] = fmt.Sprintf("%d: %s", t.ID, strings.Join(t.Keywords[:min(3, len(t.Keywords))], ", "))
	}

	var data []opts.HeatMapData
	for y, e := range entities {
		scores := r.EntityTopicScores[e]
		for x, t := range r.Topics {
			if w, ok := scores[t.ID]; ok {
				data = append(data, opts.HeatMapData{Value: [3]any{x, y, math.Round(w*1000) / 1000}})
			}
		}
	}

	subtitle := fmt.Sprintf("%s, %d communications", r.MethodUsed, r.TotalCommunications)
	if r.Fallback != "" {
		subtitle += " (tfidf fallback)"
	}
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(append(base("Entity Topic Profiles", subtitle),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: labels, AxisLabel: &opts.AxisLabel{Show: true, Rotate: 30, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: entities, AxisLabel: &opts.AxisLabel{Show: true, Interval: "0"}}),
		charts.WithVisualMapOpts(opts.VisualMap{Calculable: true, Min: 0, Max: 1, InRange: &opts.VisualMapInRange{Color: scale}}),
	)...)
	hm.SetXAxis(labels).AddSeries("weight", data)
	return hm
}

// Renderer is a chart that can write itself as an HTML page.
type Renderer interface {
	Render(w io.Writer) error
}
