package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/commscope/backend/pkg/common"
	"github.com/commscope/backend/pkg/topic"
)

func render(t *testing.T, r Renderer) string {
	t.Helper()
	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestHeatmap(t *testing.T) {
	m := &common.SimilarityMatrix{
		Entities: []string{"Nadia Conti", "Mako"},
		Matrix:   [][]float64{{1, 0.25}, {0.25, 1}},
	}
	out := render(t, Heatmap(m))
	for _, want := range []string{"Entity Similarity", "Nadia Conti", "0.25"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered heatmap lacks %q", want)
		}
	}
}

func TestNetwork(t *testing.T) {
	g, err := common.ParseGraph([]byte(`{
		"nodes": [{"id": "a", "name": "Alpha", "sub_type": "Person"}, {"id": "b", "name": "Bravo", "sub_type": "Vessel"}],
		"links": [{"source": "a", "target": "b"}, {"source": "a", "target": "b"}, {"source": "b", "target": "a"}]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	out := render(t, Network(g))
	for _, want := range []string{"Communication Network", "Alpha", "Bravo", "Vessel", "2 entities, 2 links"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered network lacks %q", want)
		}
	}
}

func TestTopicProfiles(t *testing.T) {
	r := &topic.Report{
		Topics:              []topic.TopicOut{{ID: 0, Keywords: []string{"permit", "mining", "reef", "cash"}}, {ID: 2, Keywords: []string{"harbor"}}},
		EntityTopicScores:   map[string]map[int]float64{"Nadia Conti": {0: 0.75, 2: 0.25}},
		MethodUsed:          topic.MethodTFIDF,
		TotalCommunications: 8,
	}
	out := render(t, TopicProfiles(r))
	for _, want := range []string{"Entity Topic Profiles", "0: permit, mining, reef", "2: harbor", "tfidf, 8 communications"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered profiles lack %q", want)
		}
	}
	if strings.Contains(out, "cash") {
		t.Error("topic labels should keep three keywords")
	}
}
