package topic

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/commscope/backend/pkg/common"
	"github.com/commscope/backend/pkg/text"
)

// MinCommunications is the smallest collection topic modeling runs on.
const MinCommunications = 5

// ErrNotEnoughCommunications is returned by Analyze for small collections.
var ErrNotEnoughCommunications = errors.New("not enough meaningful communications found for topic modeling")

// TopicOut is a topic with its position in the topic list.
type TopicOut struct {
	ID       int      `json:"id"`
	Keywords []string `json:"keywords"`
}

// Message is a communication with its topic weights.
type Message struct {
	common.Communication
	Topics         []float64 `json:"topics"`
	DominantTopic  int       `json:"dominant_topic"`
	DominantWeight float64   `json:"dominant_weight"`
}

// TopicStats summarizes the messages whose dominant topic is ID.
type TopicStats struct {
	ID               int     `json:"id"`
	MessageCount     int     `json:"message_count"`
	AvgMessageLength float64 `json:"avg_message_length"`
	AvgTopicScore    float64 `json:"avg_topic_score"`
}

// GraphNode is an entity taking part in the communications.
type GraphNode struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	SubType string `json:"sub_type"`
}

// GraphEdge is one communication between two entities.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Weight int    `json:"weight"`
}

// CommGraph is the communication network the topics were computed on.
type CommGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Report is the topic modeling response.
type Report struct {
	Graph               CommGraph                  `json:"graph"`
	Topics              []TopicOut                 `json:"topics"`
	EntityTopicScores   map[string]map[int]float64 `json:"entity_topic_scores"`
	MethodUsed          Method                     `json:"method_used"`
	VectorizerUsed      string                     `json:"vectorizer_used"`
	TotalCommunications int                        `json:"total_communications"`
	Messages            []Message                  `json:"messages"`
	TopicMetrics        []TopicStats               `json:"topic_metrics"`
	ModelMetrics        ModelMetrics               `json:"model_metrics"`
	Fallback            string                     `json:"fallback,omitempty"`
}

// Meaningful returns the communications of g whose content passes the
// meaningfulness filter, in link order.
func Meaningful(g *common.Graph, minWords int) []common.Communication {
	var out []common.Communication
	for _, l := range g.EdgeList() {
		c := common.CommunicationFromLink(l)
		if text.IsMeaningful(c.Content, minWords) {
			out = append(out, c)
		}
	}
	return out
}

// Contents returns the message texts of comms.
func Contents(comms []common.Communication) []string {
	out := make([]string, len(comms))
	for i, c := range comms {
		out[i] = c.Content
	}
	return out
}

// Analyze runs topic modeling over the meaningful communications of g.
func Analyze(ctx context.Context, r Modeler, opts Options, g *common.Graph) (*Report, error) {
	comms := Meaningful(g, text.DefaultMinWords)
	if len(comms) < MinCommunications {
		return nil, ErrNotEnoughCommunications
	}
	out, err := r.Run(ctx, opts, Contents(comms))
	if err != nil {
		return nil, err
	}
	return Assemble(g, comms, out), nil
}

// Assemble joins an extraction outcome back onto the communications it was
// computed from. comms and out.DocTopics are aligned by position.
func Assemble(g *common.Graph, comms []common.Communication, out Outcome) *Report {
	n := min(len(comms), len(out.DocTopics))

	vectorizer := "none"
	if out.Method == MethodLDA {
		vectorizer = string(out.Vectorizer)
	}

	r := &Report{
		EntityTopicScores:   EntityProfiles(comms[:n], out.DocTopics[:n]),
		MethodUsed:          out.Method,
		VectorizerUsed:      vectorizer,
		TotalCommunications: len(comms),
		ModelMetrics:        out.Metrics,
		Fallback:            out.Fallback,
		Topics:              []TopicOut{},
		Messages:            make([]Message, n),
		TopicMetrics:        []TopicStats{},
	}

	for i, kw := range out.Topics {
		if len(kw) > 0 {
			r.Topics = append(r.Topics, TopicOut{ID: i, Keywords: kw})
		}
	}

	for i := 0; i < n; i++ {
		dom, w := Dominant(out.DocTopics[i])
		r.Messages[i] = Message{
			Communication:  comms[i],
			Topics:         out.DocTopics[i],
			DominantTopic:  dom,
			DominantWeight: w,
		}
	}

	for _, t := range r.Topics {
		s := TopicStats{ID: t.ID}
		var words int
		var score float64
		for _, m := range r.Messages {
			if m.DominantTopic != t.ID {
				continue
			}
			s.MessageCount++
			words += len(strings.Fields(m.Content))
			score += m.DominantWeight
		}
		if s.MessageCount > 0 {
			s.AvgMessageLength = float64(words) / float64(s.MessageCount)
			s.AvgTopicScore = score / float64(s.MessageCount)
		}
		r.TopicMetrics = append(r.TopicMetrics, s)
	}

	r.Graph = communicationGraph(g, comms)
	return r
}

// EntityProfiles sums the topic weights of each source entity's messages
// and normalizes every profile to sum to 1. Entities with no weight are
// left out.
func EntityProfiles(comms []common.Communication, docTopics [][]float64) map[string]map[int]float64 {
	out := map[string]map[int]float64{}
	for i, c := range comms {
		if c.Source == "" || i >= len(docTopics) {
			continue
		}
		for t, w := range docTopics[i] {
			if w <= 0 {
				continue
			}
			if out[c.Source] == nil {
				out[c.Source] = map[int]float64{}
			}
			out[c.Source][t] += w
		}
	}
	for entity, scores := range out {
		var total float64
		for _, w := range scores {
			total += w
		}
		if total <= 0 {
			delete(out, entity)
			continue
		}
		for t := range scores {
			scores[t] /= total
		}
	}
	return out
}

// Dominant returns the index and value of the largest weight, the first
// one on ties. An empty vector yields -1 and 0.
func Dominant(weights []float64) (int, float64) {
	if len(weights) == 0 {
		return -1, 0
	}
	best := 0
	for i, w := range weights {
		if w > weights[best] {
			best = i
		}
	}
	return best, weights[best]
}

func communicationGraph(g *common.Graph, comms []common.Communication) CommGraph {
	entities := map[string]struct{}{}
	for _, l := range g.EdgeList() {
		if s := l.Source(); s != "" {
			entities[s] = struct{}{}
		}
		if t := l.Target(); t != "" {
			entities[t] = struct{}{}
		}
	}

	nodeMap := g.NodeMap()
	nodes := make([]GraphNode, 0, len(entities))
	for id := range entities {
		n, ok := nodeMap[id]
		if !ok {
			nodes = append(nodes, GraphNode{ID: id, Name: id, Type: "Entity", SubType: "Unknown"})
			continue
		}
		nodes = append(nodes, GraphNode{
			ID:      id,
			Name:    n.GetOr("name", id),
			Type:    n.GetOr("type", "Entity"),
			SubType: n.GetOr("sub_type", "Unknown"),
		})
	}
	sort.Slice(nodes, func(a, b int) bool { return nodes[a].ID < nodes[b].ID })

	edges := []GraphEdge{}
	for _, c := range comms {
		if c.Source != "" && c.Target != "" {
			edges = append(edges, GraphEdge{Source: c.Source, Target: c.Target, Type: "communication", Weight: 1})
		}
	}
	return CommGraph{Nodes: nodes, Edges: edges}
}
