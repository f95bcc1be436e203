package viz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/commscope/backend/pkg/topic"
)

var messages = []string{
	"The mining permit for the northern reef was approved after the cash payment",
	"Send the cash to the harbor office before the permit review",
	"Fishing quotas at the harbor are being reviewed by the council",
	"The council wants the mining permit reviewed again next week",
	"Cash payment confirmed, the harbor office will stay quiet",
	"Northern reef survey shows damage from illegal mining activity",
	"Council meeting about fishing quotas moved to Friday",
	"Harbor office asked about the reef survey results",
}

// commGraph builds a communication graph with one link per message,
// alternating between two senders.
func commGraph(t *testing.T, contents []string) string {
	t.Helper()
	senders := []string{"Nadia Conti", "Mako"}
	links := make([]map[string]any, len(contents))
	for i, c := range contents {
		links[i] = map[string]any{
			"source":   senders[i%2],
			"target":   senders[(i+1)%2],
			"event_id": fmt.Sprintf("m%d", i),
			"datetime": fmt.Sprintf("2040-10-%02dT09:00:00", i+1),
			"content":  c,
		}
	}
	b, err := json.Marshal(map[string]any{
		"nodes": []map[string]any{
			{"id": "Nadia Conti", "type": "Entity", "sub_type": "Person", "name": "Nadia Conti"},
			{"id": "Mako", "type": "Entity", "sub_type": "Vessel", "name": "Mako"},
		},
		"links": links,
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func topicView(files memFiles) *TopicModeling {
	return &TopicModeling{Deps{
		Config: Config{CommunicationFile: "comm.json"},
		Files:  files,
		Topics: topic.NewRunner(nil),
	}}
}

func TestTopicModelingTFIDF(t *testing.T) {
	v := topicView(memFiles{"comm.json": commGraph(t, messages)})
	out, err := v.Data(context.Background(), Params{"method": "tfidf", "num_topics": "4"})
	if err != nil {
		t.Fatal(err)
	}
	r, ok := out.(*topic.Report)
	if !ok {
		t.Fatalf("payload = %#v", out)
	}
	if r.MethodUsed != topic.MethodTFIDF || r.VectorizerUsed != "none" {
		t.Fatalf("method = %s, vectorizer = %s", r.MethodUsed, r.VectorizerUsed)
	}
	if r.TotalCommunications != len(messages) || len(r.Messages) != len(messages) {
		t.Fatalf("communications = %d, messages = %d", r.TotalCommunications, len(r.Messages))
	}
	if len(r.Graph.Nodes) != 2 || len(r.Graph.Edges) != len(messages) {
		t.Fatalf("graph = %+v", r.Graph)
	}
	for entity, scores := range r.EntityTopicScores {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		if sum < 1-1e-6 || sum > 1+1e-6 {
			t.Fatalf("profile of %s sums to %v", entity, sum)
		}
	}
}

func TestTopicModelingNotEnough(t *testing.T) {
	contents := append([]string{"the of and", "ok", ""}, messages[:3]...)
	v := topicView(memFiles{"comm.json": commGraph(t, contents)})
	out, err := v.Data(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	f, ok := out.(Failure)
	if !ok || f.Error != "Not enough meaningful communications found for topic modeling" {
		t.Fatalf("payload = %#v", out)
	}
}

func TestTopicModelingBadOptions(t *testing.T) {
	v := topicView(memFiles{"comm.json": commGraph(t, messages)})
	_, err := v.Data(context.Background(), Params{"vectorizer": "word2vec"})
	var oe *OptionsError
	if !asOptionsError(err, &oe) {
		t.Fatalf("expected OptionsError, got %v", err)
	}
}

func TestTopicModelingNotConfigured(t *testing.T) {
	v := &TopicModeling{Deps{Files: memFiles{}, Topics: topic.NewRunner(nil)}}
	out, _ := v.Data(context.Background(), nil)
	if f, ok := out.(Failure); !ok || f.Error != "Communication file not configured" {
		t.Fatalf("payload = %#v", out)
	}
}

func TestDailyPatternsKeywords(t *testing.T) {
	v := &DailyPatterns{Deps{
		Config: Config{DataFile: "graph.json", AnalysisYear: 2040, AnalysisMonth: time.October},
		Files:  memFiles{"graph.json": eventGraph},
		Topics: topic.NewRunner(nil),
	}}
	out, err := v.Data(context.Background(), Params{"include_topics": "false"})
	if err != nil {
		t.Fatal(err)
	}
	d := out.(DailyPatternsData)
	if len(d.Events) != 2 || len(d.Entities) != 2 || d.DailyKeywords == nil || len(d.Keywords) == 0 {
		t.Fatalf("daily patterns = %+v", d)
	}
	if d.DailyTopics != nil {
		t.Fatalf("topic fields set without include_topics: %+v", d)
	}
}

func TestDailyPatternsTooFewForTopics(t *testing.T) {
	v := &DailyPatterns{Deps{
		Config: Config{DataFile: "graph.json", AnalysisYear: 2040, AnalysisMonth: time.October},
		Files:  memFiles{"graph.json": eventGraph},
		Topics: topic.NewRunner(nil),
	}}
	out, err := v.Data(context.Background(), Params{"include_topics": true, "method": "tfidf"})
	if err != nil {
		t.Fatal(err)
	}
	d := out.(DailyPatternsData)
	if d.DailyTopics == nil || d.TotalCommunications != 1 {
		t.Fatalf("topic data = %+v", d.DailyTopics)
	}
	if len(d.Topics) != 0 || len(d.EventTopicData) != 0 || d.MethodUsed != "tfidf" {
		t.Fatalf("expected empty topic data, got %+v", d)
	}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["keywords"]; ok {
		t.Fatal("keywords should be omitted when topics are requested")
	}
	if topics, ok := raw["topics"].([]any); !ok || len(topics) != 0 {
		t.Fatalf("topics = %#v", raw["topics"])
	}
}

// dailyGraph builds one communication event per content, sent by Nadia to
// Remora on consecutive days of October 2040.
func dailyGraph(t *testing.T, contents []string) string {
	t.Helper()
	nodes := []map[string]any{
		{"id": "nadia", "type": "Entity", "sub_type": "Person", "label": "Nadia Conti"},
		{"id": "remora", "type": "Entity", "sub_type": "Vessel", "label": "Remora"},
	}
	var edges []map[string]any
	for i, c := range contents {
		id := fmt.Sprintf("ev%d", i)
		nodes = append(nodes, map[string]any{
			"id": id, "type": "Event", "sub_type": "Communication",
			"timestamp": fmt.Sprintf("2040-10-%02d 09:00:00", i+1),
			"content":   c,
		})
		edges = append(edges,
			map[string]any{"source": "nadia", "target": id, "type": "sent"},
			map[string]any{"source": id, "target": "remora", "type": "received"},
		)
	}
	b, err := json.Marshal(map[string]any{"nodes": nodes, "edges": edges})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func dailyView(t *testing.T, contents []string, topics topic.Modeler) *DailyPatterns {
	t.Helper()
	return &DailyPatterns{Deps{
		Config: Config{DataFile: "graph.json", AnalysisYear: 2040, AnalysisMonth: time.October},
		Files:  memFiles{"graph.json": dailyGraph(t, contents)},
		Topics: topics,
	}}
}

// withBlank returns messages with an empty message inserted at index 2.
func withBlank() []string {
	out := append([]string{}, messages[:2]...)
	out = append(out, "")
	return append(out, messages[2:]...)
}

func TestDailyPatternsTopics(t *testing.T) {
	contents := withBlank()
	v := dailyView(t, contents, topic.NewRunner(nil))
	out, err := v.Data(context.Background(), Params{"include_topics": "true", "method": "tfidf", "num_topics": 3})
	if err != nil {
		t.Fatal(err)
	}
	d := out.(DailyPatternsData)
	if d.DailyTopics == nil || d.DailyKeywords != nil {
		t.Fatalf("expected topic data only, got %+v", d)
	}
	if len(d.Events) != len(contents) || d.TotalCommunications != len(messages) || d.MethodUsed != "tfidf" {
		t.Fatalf("events=%d total=%d method=%s", len(d.Events), d.TotalCommunications, d.MethodUsed)
	}

	if len(d.Topics) != 3 {
		t.Fatalf("expected 3 topics, got %+v", d.Topics)
	}
	for i, tp := range d.Topics {
		want := fmt.Sprintf("Topic %d: %s", i, strings.Join(tp.Keywords[:min(3, len(tp.Keywords))], ", "))
		if tp.ID != i || tp.Name != want {
			t.Fatalf("topic %d = %+v, want name %q", i, tp, want)
		}
	}

	var want []string
	for _, e := range d.Events {
		if e.Content != "" {
			want = append(want, e.ID)
		}
	}
	if len(d.EventTopicData) != len(want) {
		t.Fatalf("expected %d event topic rows, got %d", len(want), len(d.EventTopicData))
	}
	for i, et := range d.EventTopicData {
		if et.EventID != want[i] {
			t.Fatalf("row %d belongs to %s, want %s", i, et.EventID, want[i])
		}
		if len(et.TopicWeights) != 3 {
			t.Fatalf("row %d has %d weights", i, len(et.TopicWeights))
		}
		dom, w := topic.Dominant(et.TopicWeights)
		if et.DominantTopic != dom || et.DominantWeight != w {
			t.Fatalf("row %d dominant = %d/%v, want %d/%v", i, et.DominantTopic, et.DominantWeight, dom, w)
		}
	}
	if d.EventTopicData[1].EventID != "ev1" || d.EventTopicData[2].EventID != "ev3" {
		t.Fatalf("empty event ev2 should be skipped: %+v", d.EventTopicData[:3])
	}
}

type brokenModeler struct{}

func (brokenModeler) Run(context.Context, topic.Options, []string) (topic.Outcome, error) {
	return topic.Outcome{}, errors.New("modeler unavailable")
}

func TestDailyPatternsTopicsFallBackToKeywords(t *testing.T) {
	v := dailyView(t, withBlank(), brokenModeler{})
	out, err := v.Data(context.Background(), Params{"include_topics": "true", "method": "tfidf"})
	if err != nil {
		t.Fatal(err)
	}
	d := out.(DailyPatternsData)
	kws := topic.ExtractKeywords(messages, dailyFallbackTerms, 3)
	if len(kws) == 0 || len(d.Topics) != len(kws) {
		t.Fatalf("expected %d keyword topics, got %+v", len(kws), d.Topics)
	}
	for i, tp := range d.Topics {
		if tp.ID != i || tp.Name != kws[i].Term || len(tp.Keywords) != 1 || tp.Keywords[0] != kws[i].Term {
			t.Fatalf("topic %d = %+v, want keyword %q", i, tp, kws[i].Term)
		}
	}
	if len(d.EventTopicData) != 0 {
		t.Fatalf("fallback should carry no event topic data, got %d rows", len(d.EventTopicData))
	}
}
