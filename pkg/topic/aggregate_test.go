package topic

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/commscope/backend/pkg/common"
)

func link(id, src, dst, content string) common.Link {
	return common.Link{"event_id": id, "source": src, "target": dst, "content": content, "datetime": "2040-10-01 08:00:00"}
}

func testGraph() *common.Graph {
	return &common.Graph{
		Nodes: []common.Node{
			{"id": "Nadia Conti", "name": "Nadia Conti", "type": "Entity", "sub_type": "Person"},
			{"id": "Oceanus City Council", "type": "Entity", "sub_type": "Organization"},
		},
		Links: []common.Link{
			link("e1", "Nadia Conti", "Oceanus City Council", "The mining permit needs another signature today"),
			link("e2", "Oceanus City Council", "Nadia Conti", "ok"),
			link("e3", "Nadia Conti", "Harbor Master", "Cash payment arrives at the harbor tonight"),
			link("e4", "Harbor Master", "Nadia Conti", "Harbor inspection postponed until the permit clears"),
			link("e5", "Nadia Conti", "Oceanus City Council", "Council vote on the mining permit moved again"),
			link("e6", "Harbor Master", "", "Cash counted and stored at the harbor office"),
		},
	}
}

func TestAssemble(t *testing.T) {
	g := testGraph()
	comms := Meaningful(g, 3)
	if len(comms) != 5 {
		t.Fatalf("expected 5 meaningful communications, got %d", len(comms))
	}

	out := Outcome{
		Method: MethodLDA, Vectorizer: VectorizerBOW,
		Result: Result{
			Topics: [][]string{{"mining", "permit"}, {}, {"cash", "harbor"}},
			DocTopics: [][]float64{
				{0.8, 0, 0.2},
				{0, 0.5, 0.5},
				{0.6, 0, 0.4},
				{1, 0, 0},
				{0, 0.1, 0.9},
			},
		},
	}
	r := Assemble(g, comms, out)

	if r.VectorizerUsed != "bow" || r.MethodUsed != MethodLDA || r.TotalCommunications != 5 {
		t.Fatalf("unexpected header %+v", r)
	}
	if len(r.Topics) != 2 || r.Topics[0].ID != 0 || r.Topics[1].ID != 2 {
		t.Fatalf("empty topics should be dropped keeping ids, got %+v", r.Topics)
	}

	// e3 splits evenly between topics 1 and 2.
	if r.Messages[1].DominantTopic != 1 || r.Messages[1].DominantWeight != 0.5 {
		t.Fatalf("tie should pick first max, got %+v", r.Messages[1])
	}
	if r.Messages[0].ID != "e1" || r.Messages[0].DominantTopic != 0 {
		t.Fatalf("unexpected first message %+v", r.Messages[0])
	}

	nadia := r.EntityTopicScores["Nadia Conti"]
	var sum float64
	for _, w := range nadia {
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("profile sums to %v", sum)
	}
	if math.Abs(nadia[0]-0.6) > 1e-9 {
		t.Fatalf("nadia topic 0 = %v", nadia[0])
	}

	if len(r.TopicMetrics) != 2 {
		t.Fatalf("expected stats for the 2 output topics, got %+v", r.TopicMetrics)
	}
	if s := r.TopicMetrics[0]; s.MessageCount != 3 {
		t.Fatalf("topic 0 stats %+v", s)
	}
	if s := r.TopicMetrics[1]; s.ID != 2 || s.MessageCount != 1 || s.AvgTopicScore != 0.9 {
		t.Fatalf("topic 2 stats %+v", s)
	}

	if len(r.Graph.Nodes) != 3 {
		t.Fatalf("expected 3 entities, got %+v", r.Graph.Nodes)
	}
	if r.Graph.Nodes[0].ID != "Harbor Master" || r.Graph.Nodes[0].Type != "Entity" || r.Graph.Nodes[0].SubType != "Unknown" {
		t.Fatalf("unknown entity defaults missing: %+v", r.Graph.Nodes[0])
	}
	if r.Graph.Nodes[2].Name != "Oceanus City Council" || r.Graph.Nodes[2].SubType != "Organization" {
		t.Fatalf("node attributes not taken from the node map: %+v", r.Graph.Nodes[2])
	}
	if len(r.Graph.Edges) != 4 {
		t.Fatalf("edges need both ends, got %d", len(r.Graph.Edges))
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"graph", "topics", "entity_topic_scores", "method_used", "messages", "topic_metrics", "model_metrics"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("response misses %q", key)
		}
	}
}

func TestEntityProfilesSkipZeroWeight(t *testing.T) {
	comms := []common.Communication{{Source: "a"}, {Source: "b"}, {Source: ""}}
	profiles := EntityProfiles(comms, [][]float64{{0.25, 0.75}, {0, 0}, {1, 0}})
	if _, ok := profiles["b"]; ok {
		t.Fatal("entity without weight should be omitted")
	}
	if len(profiles) != 1 || profiles["a"][1] != 0.75 {
		t.Fatalf("unexpected profiles %v", profiles)
	}
}

func TestDominant(t *testing.T) {
	if i, w := Dominant(nil); i != -1 || w != 0 {
		t.Fatalf("empty vector = %d, %v", i, w)
	}
	if i, w := Dominant([]float64{0.2, 0.4, 0.4}); i != 1 || w != 0.4 {
		t.Fatalf("tie = %d, %v", i, w)
	}
}

func TestAnalyzeNotEnough(t *testing.T) {
	g := &common.Graph{Links: []common.Link{
		link("e1", "a", "b", "the a of"),
		link("e2", "a", "b", "the a of"),
		link("e3", "a", "b", "the a of"),
	}}
	_, err := Analyze(context.Background(), NewRunner(nil), Options{Method: MethodTFIDF}, g)
	if !errors.Is(err, ErrNotEnoughCommunications) {
		t.Fatalf("expected ErrNotEnoughCommunications, got %v", err)
	}
}

func TestAnalyzeTFIDF(t *testing.T) {
	g := &common.Graph{}
	for i, c := range corpus {
		g.Links = append(g.Links, link(string(rune('a'+i)), "src", "dst", c))
	}
	r, err := Analyze(context.Background(), NewRunner(nil), Options{Method: MethodTFIDF, NumTopics: AutoCount()}, g)
	if err != nil {
		t.Fatal(err)
	}
	if r.VectorizerUsed != "none" || len(r.Topics) != 5 {
		t.Fatalf("unexpected report: vectorizer %q, %d topics", r.VectorizerUsed, len(r.Topics))
	}
	if len(r.Messages) != len(corpus) {
		t.Fatalf("expected %d messages, got %d", len(corpus), len(r.Messages))
	}
}
