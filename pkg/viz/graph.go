package viz

import (
	"context"

	"github.com/commscope/backend/pkg/common"
	"github.com/commscope/backend/pkg/loader"
	"github.com/commscope/backend/pkg/logger"
)

// GraphView returns the communication and relationship networks together
// with the entity similarity heatmap.
type GraphView struct{ Deps }

func (*GraphView) Name() string  { return "graph" }
func (*GraphView) Title() string { return "Network Exploration" }
func (*GraphView) Description() string {
	return "Visualize the interaction between entities and their relationships."
}
func (*GraphView) Options() any { return nil }

type NodeLinks struct {
	Nodes []common.Node `json:"nodes"`
	Links []common.Link `json:"links"`
}

type GraphData struct {
	Communication NodeLinks               `json:"communication"`
	Relationships NodeLinks               `json:"relationships"`
	Heatmap       common.SimilarityMatrix `json:"heatmap"`
}

func nodeLinks(g *common.Graph) NodeLinks {
	out := NodeLinks{Nodes: g.Nodes, Links: g.EdgeList()}
	if out.Nodes == nil {
		out.Nodes = []common.Node{}
	}
	if out.Links == nil {
		out.Links = []common.Link{}
	}
	return out
}

func (v *GraphView) Data(ctx context.Context, _ Params) (any, error) {
	if v.Config.CommunicationFile == "" {
		return failure("Data file not configured"), nil
	}
	comm, err := loader.LoadGraph(ctx, v.Files, v.Config.CommunicationFile)
	if err != nil {
		return failure("Could not load data file: %v", err), nil
	}
	sim, err := loader.LoadSimilarity(ctx, v.Files, v.Config.SimilarityFile)
	if err != nil {
		return failure("Could not load entity similarity matrix: %v", err), nil
	}
	rel, err := loader.LoadGraph(ctx, v.Files, v.Config.RelationshipsFile)
	if err != nil {
		return failure("Could not load relationships file: %v", err), nil
	}

	out := GraphData{
		Communication: nodeLinks(comm),
		Relationships: nodeLinks(rel),
		Heatmap:       *sim,
	}
	logger.Debug("graph loaded", "nodes", len(out.Communication.Nodes), "links", len(out.Communication.Links))
	return out, nil
}
