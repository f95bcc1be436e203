package viz

import (
	"context"
	"fmt"
	"strings"

	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/topic"
)

const (
	dailyKeywords      = 15
	dailyFallbackTerms = 10
	dailyMinTopicSize  = 3
	dailyTFIDFDefault  = 5
)

// DailyPatterns lays out the communication events of the analysis month
// by day, optionally tagged with topics.
type DailyPatterns struct{ Deps }

func (*DailyPatterns) Name() string  { return "daily_patterns" }
func (*DailyPatterns) Title() string { return "Daily Communication Patterns" }
func (*DailyPatterns) Description() string {
	return "Visualization of daily communication events with entity markers"
}
func (*DailyPatterns) Options() any { return &DailyOptions{} }

type DailyTopic struct {
	ID       int      `json:"id"`
	Keywords []string `json:"keywords"`
	Name     string   `json:"name"`
}

type EventTopics struct {
	EventID        string    `json:"event_id"`
	TopicWeights   []float64 `json:"topic_weights"`
	DominantTopic  int       `json:"dominant_topic"`
	DominantWeight float64   `json:"dominant_weight"`
}

// DailyPatternsData carries either keywords or topic data next to the
// events, depending on include_topics.
type DailyPatternsData struct {
	Events   []CommEvent `json:"events"`
	Entities []EntityRef `json:"entities"`
	*DailyKeywords
	*DailyTopics
}

type DailyKeywords struct {
	Keywords []topic.Keyword `json:"keywords"`
}

type DailyTopics struct {
	Topics              []DailyTopic  `json:"topics"`
	MethodUsed          string        `json:"method_used"`
	TotalCommunications int           `json:"total_communications"`
	EventTopicData      []EventTopics `json:"event_topic_data"`
}

func (v *DailyPatterns) Data(ctx context.Context, params Params) (any, error) {
	opts := DailyOptions{TopicOptions: defaultTopicOptions(dailyMinTopicSize)}
	if err := Decode(params, &opts); err != nil {
		return nil, err
	}
	g, fail := v.graph(ctx, v.Config.DataFile, "Data")
	if fail != nil {
		return fail, nil
	}

	events, entities := monthEvents(g, v.Config.AnalysisYear, v.Config.AnalysisMonth, false)
	logger.Info("daily communication events", "count", len(events), "year", v.Config.AnalysisYear, "month", v.Config.AnalysisMonth)

	out := DailyPatternsData{Events: events, Entities: entities}
	contents := eventContents(events)
	if !opts.IncludeTopics {
		kws := topic.ExtractKeywords(contents, dailyKeywords, 2)
		if kws == nil {
			kws = []topic.Keyword{}
		}
		out.DailyKeywords = &DailyKeywords{Keywords: kws}
		return out, nil
	}

	td, err := v.topics(ctx, events, contents, opts.TopicOptions)
	if err != nil {
		return nil, err
	}
	out.DailyTopics = td
	return out, nil
}

// topics computes the topic part of the view. A failed extraction
// degrades to one topic per keyword.
func (v *DailyPatterns) topics(ctx context.Context, events []CommEvent, contents []string, opts TopicOptions) (*DailyTopics, error) {
	out := &DailyTopics{
		Topics:              []DailyTopic{},
		MethodUsed:          opts.Method,
		TotalCommunications: len(contents),
		EventTopicData:      []EventTopics{},
	}
	if out.MethodUsed == "" {
		out.MethodUsed = string(topic.MethodBERTopic)
	}

	if len(contents) < topic.MinCommunications {
		logger.Warn("not enough content for topic modeling", "events", len(contents))
		return out, nil
	}

	eo := opts.extraction()
	eo.TFIDFAuto = topic.AutoDailyTopics
	eo.TFIDFDefault = dailyTFIDFDefault
	res, err := v.Topics.Run(ctx, eo, contents)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Error("topic modeling failed", "err", err)
		for i, kw := range topic.ExtractKeywords(contents, dailyFallbackTerms, 3) {
			out.Topics = append(out.Topics, DailyTopic{ID: i, Keywords: []string{kw.Term}, Name: kw.Term})
		}
		return out, nil
	}

	for i, kws := range res.Topics {
		if len(kws) == 0 {
			continue
		}
		out.Topics = append(out.Topics, DailyTopic{
			ID:       i,
			Keywords: kws,
			Name:     fmt.Sprintf("Topic %d: %s", i, strings.Join(kws[:min(3, len(kws))], ", ")),
		})
	}

	next := 0
	for _, e := range events {
		if e.Content == "" {
			continue
		}
		if next < len(res.DocTopics) {
			w := res.DocTopics[next]
			dom, weight := topic.Dominant(w)
			out.EventTopicData = append(out.EventTopicData, EventTopics{
				EventID:        e.ID,
				TopicWeights:   w,
				DominantTopic:  dom,
				DominantWeight: weight,
			})
		}
		next++
	}
	return out, nil
}
