package viz

import (
	"context"
	"errors"
	"testing"

	"github.com/commscope/backend/pkg/topic"
)

func asOptionsError(err error, target **OptionsError) bool {
	return errors.As(err, target)
}

func TestRegistry(t *testing.T) {
	r := Default(Deps{Files: memFiles{}, Topics: topic.NewRunner(nil)})

	want := []string{"time_patterns", "daily_patterns", "topic_modeling", "graph", "keyword_analysis", "suspect_analysis"}
	list := r.List()
	if len(list) != len(want) {
		t.Fatalf("got %d views, want %d", len(list), len(want))
	}
	for i, info := range list {
		if info.Name != want[i] {
			t.Fatalf("view %d is %q, want %q", i, info.Name, want[i])
		}
		if info.Title == "" || info.Description == "" {
			t.Fatalf("view %q has no title or description", info.Name)
		}
	}

	byName := map[string]Info{}
	for _, info := range list {
		byName[info.Name] = info
	}
	titles := map[string]string{
		"time_patterns":    "Time of Day Patterns",
		"daily_patterns":   "Daily Communication Patterns",
		"topic_modeling":   "Topic Modeling Explorer",
		"graph":            "Network Exploration",
		"keyword_analysis": "Keyword Communication Analysis",
	}
	for name, title := range titles {
		if byName[name].Title != title {
			t.Errorf("%s title = %q, want %q", name, byName[name].Title, title)
		}
	}
	if d := byName["topic_modeling"].Description; d != "Visualize entity participation in different communication topics" {
		t.Errorf("topic_modeling description = %q", d)
	}
	if byName["graph"].Options != nil {
		t.Fatal("graph takes no options")
	}
	opts := byName["daily_patterns"].Options
	if opts == nil || opts.Properties == nil {
		t.Fatal("daily_patterns should publish an options schema")
	}
	for _, key := range []string{"method", "num_topics", "include_topics", "min_topic_size"} {
		if _, ok := opts.Properties.Get(key); !ok {
			t.Errorf("daily_patterns schema lacks %q", key)
		}
	}

	if _, err := r.Get("nadia_analysis"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.Data(context.Background(), "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryDuplicates(t *testing.T) {
	a := &GraphView{}
	b := &GraphView{Deps{Config: Config{DataFile: "x"}}}
	r := NewRegistry(a, &TimePatterns{}, b)
	if len(r.List()) != 2 {
		t.Fatalf("duplicates should collapse, got %d views", len(r.List()))
	}
	if v, _ := r.Get("graph"); v != b {
		t.Fatal("later registration should win")
	}
}

func TestDecodeTopicOptions(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   TopicOptions
		bad    bool
	}{
		{
			name:   "defaults",
			params: nil,
			want:   TopicOptions{NumTopics: topic.AutoCount(), MinTopicSize: 5},
		},
		{
			name:   "strings from a query",
			params: Params{"method": "lda?vectorizer=bow", "num_topics": "7", "min_topic_size": "4"},
			want:   TopicOptions{Method: "lda?vectorizer=bow", NumTopics: topic.FixedCount(7), MinTopicSize: 4},
		},
		{
			name:   "numbers from a body",
			params: Params{"num_topics": 3.0, "vectorizer": "bow"},
			want:   TopicOptions{Vectorizer: "bow", NumTopics: topic.FixedCount(3), MinTopicSize: 5},
		},
		{name: "bad vectorizer", params: Params{"vectorizer": "w2v"}, bad: true},
		{name: "small min topic size", params: Params{"min_topic_size": 1}, bad: true},
		{name: "non numeric min topic size", params: Params{"min_topic_size": "many"}, bad: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defaultTopicOptions(5)
			err := Decode(tt.params, &got)
			if tt.bad {
				var oe *OptionsError
				if !asOptionsError(err, &oe) {
					t.Fatalf("expected OptionsError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTopicOptionsExtraction(t *testing.T) {
	o := TopicOptions{Method: "lda?vectorizer=bow", NumTopics: topic.FixedCount(3), MinTopicSize: 4}
	e := o.extraction()
	if e.Method != topic.MethodLDA || e.Vectorizer != topic.VectorizerBOW || e.MinTopicSize != 4 {
		t.Fatalf("extraction = %+v", e)
	}

	o = TopicOptions{Method: "lda", Vectorizer: "bow"}
	if e := o.extraction(); e.Vectorizer != topic.VectorizerBOW {
		t.Fatalf("explicit vectorizer ignored: %+v", e)
	}
}

func TestFlag(t *testing.T) {
	tests := map[string]bool{
		`true`: true, `false`: false, `"true"`: true, `"1"`: true, `"on"`: true,
		`"false"`: false, `"0"`: false, `""`: false, `1`: true, `0`: false, `null`: false,
	}
	for in, want := range tests {
		var f Flag = !Flag(want)
		if err := f.UnmarshalJSON([]byte(in)); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if bool(f) != want {
			t.Errorf("%s = %v, want %v", in, f, want)
		}
	}
	var f Flag
	if err := f.UnmarshalJSON([]byte(`"maybe"`)); err == nil {
		t.Fatal("expected an error for maybe")
	}
}

func TestGraphView(t *testing.T) {
	files := memFiles{
		"comm.json": commGraph(t, messages[:2]),
		"rel.json":  `{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "a"}]}`,
		"sim.csv":   ",a,b\na,1,0.5\nb,0.5,1\n",
	}
	v := &GraphView{Deps{
		Config: Config{CommunicationFile: "comm.json", RelationshipsFile: "rel.json", SimilarityFile: "sim.csv"},
		Files:  files,
	}}
	out, err := v.Data(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	g, ok := out.(GraphData)
	if !ok {
		t.Fatalf("payload = %#v", out)
	}
	if len(g.Communication.Links) != 2 || len(g.Relationships.Links) != 1 {
		t.Fatalf("links = %d, %d", len(g.Communication.Links), len(g.Relationships.Links))
	}
	if len(g.Heatmap.Entities) != 2 || g.Heatmap.Matrix[0][1] != 0.5 {
		t.Fatalf("heatmap = %+v", g.Heatmap)
	}

	v.Config.SimilarityFile = "missing.csv"
	out, _ = v.Data(context.Background(), nil)
	if f, ok := out.(Failure); !ok || f.Error != "Could not load entity similarity matrix: open missing.csv: no such file" {
		t.Fatalf("payload = %#v", out)
	}
}
