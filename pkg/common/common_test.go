package common

import "testing"

func TestParseGraphLinksAndEdges(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{
			name:  "links key",
			input: `{"nodes":[{"id":"a"},{"id":"b"}],"links":[{"source":"a","target":"b"}]}`,
			want:  1,
		},
		{
			name:  "edges key",
			input: `{"nodes":[{"id":"a"}],"edges":[{"source":"a","target":"a"},{"source":"a","target":"a"}]}`,
			want:  2,
		},
		{
			name:  "no edges",
			input: `{"nodes":[]}`,
			want:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseGraph([]byte(tt.input))
			if err != nil {
				t.Fatalf("ParseGraph: %v", err)
			}
			if got := len(g.EdgeList()); got != tt.want {
				t.Fatalf("EdgeList len = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseGraphInvalid(t *testing.T) {
	if _, err := ParseGraph([]byte("{nope")); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestAttrsString(t *testing.T) {
	a := Attrs{"s": "x", "n": float64(42), "f": 1.5, "b": true, "null": nil}
	cases := map[string]string{"s": "x", "n": "42", "f": "1.5", "b": "true", "null": "", "missing": ""}
	for key, want := range cases {
		if got := a.String(key); got != want {
			t.Errorf("String(%q) = %q, want %q", key, got, want)
		}
	}
	if got := a.StringOr("missing", "Unknown"); got != "Unknown" {
		t.Errorf("StringOr = %q", got)
	}
}

func TestCommunicationFromLink(t *testing.T) {
	l := Link{"event_id": "ev1", "source": "A", "target": "B", "content": "hi", "datetime": "2040-10-01T08:00:00"}
	c := CommunicationFromLink(l)
	if c.ID != "ev1" || c.Source != "A" || c.Target != "B" || c.Content != "hi" || c.Datetime != "2040-10-01T08:00:00" {
		t.Fatalf("unexpected communication: %+v", c)
	}
}

func TestNodeMap(t *testing.T) {
	g := &Graph{Nodes: []Node{{"id": "a", "type": "Entity"}, {"id": "b", "type": "Event", "sub_type": "Communication"}}}
	m := g.NodeMap()
	if m["b"].SubType() != "Communication" || m["a"].Type() != "Entity" {
		t.Fatalf("unexpected node map: %v", m)
	}
}
