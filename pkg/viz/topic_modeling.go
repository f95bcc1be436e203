package viz

import (
	"context"
	"errors"

	"github.com/commscope/backend/pkg/loader"
	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/topic"
)

const topicMinTopicSize = 5

// notEnoughCommunications is the payload for collections too small to model.
const notEnoughCommunications = "Not enough meaningful communications found for topic modeling"

// TopicModeling extracts topics from the communication links and profiles
// each entity by the topics of the messages it sent.
type TopicModeling struct{ Deps }

func (*TopicModeling) Name() string  { return "topic_modeling" }
func (*TopicModeling) Title() string { return "Topic Modeling Explorer" }
func (*TopicModeling) Description() string {
	return "Visualize entity participation in different communication topics"
}
func (*TopicModeling) Options() any { return &TopicOptions{} }

func (v *TopicModeling) Data(ctx context.Context, params Params) (any, error) {
	opts, err := DecodeTopicOptions(params)
	if err != nil {
		return nil, err
	}
	return v.Report(ctx, opts)
}

// DecodeTopicOptions applies params to the default topic modeling options.
func DecodeTopicOptions(params Params) (TopicOptions, error) {
	opts := defaultTopicOptions(topicMinTopicSize)
	if err := Decode(params, &opts); err != nil {
		return TopicOptions{}, err
	}
	return opts, nil
}

// Report runs topic modeling with already decoded options. Domain failures
// are returned as a Failure payload.
func (v *TopicModeling) Report(ctx context.Context, opts TopicOptions) (any, error) {
	path := v.Config.CommunicationFile
	if path == "" {
		return failure("Communication file not configured"), nil
	}
	g, err := loader.LoadGraph(ctx, v.Files, path)
	if err != nil {
		return failure("Could not load communication data: %v", err), nil
	}

	report, err := topic.Analyze(ctx, v.Topics, opts.extraction(), g)
	switch {
	case errors.Is(err, topic.ErrNotEnoughCommunications):
		return failure(notEnoughCommunications), nil
	case err != nil:
		return nil, err
	}
	logger.Debug("topic modeling done",
		"method", report.MethodUsed,
		"topics", len(report.Topics),
		"communications", report.TotalCommunications,
		"fallback", report.Fallback != "",
	)
	return report, nil
}
