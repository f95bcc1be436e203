package viz

import (
	"context"
	"regexp"
	"strings"

	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/topic"
)

const analysisKeywords = 20

// KeywordAnalysis finds the most important expressions of the analysis
// month and groups the communication events by them.
type KeywordAnalysis struct{ Deps }

func (*KeywordAnalysis) Name() string  { return "keyword_analysis" }
func (*KeywordAnalysis) Title() string { return "Keyword Communication Analysis" }
func (*KeywordAnalysis) Description() string {
	return "Identify important expressions and group communications by them"
}
func (*KeywordAnalysis) Options() any { return nil }

type KeywordAnalysisData struct {
	Keywords      []topic.Keyword     `json:"keywords"`
	KeywordEvents map[string][]string `json:"keyword_events"`
	Events        []CommEvent         `json:"events"`
	Entities      []EntityRef         `json:"entities"`
}

func (v *KeywordAnalysis) Data(ctx context.Context, _ Params) (any, error) {
	g, fail := v.graph(ctx, v.Config.DataFile, "Data")
	if fail != nil {
		return fail, nil
	}
	events, entities := monthEvents(g, v.Config.AnalysisYear, v.Config.AnalysisMonth, true)
	for i := range events {
		events[i].Time, events[i].Day = "", 0
	}
	logger.Info("keyword analysis events", "count", len(events))

	keywords := topic.ExtractKeywords(eventContents(events), analysisKeywords, 2)
	if keywords == nil {
		keywords = []topic.Keyword{}
	}
	return KeywordAnalysisData{
		Keywords:      keywords,
		KeywordEvents: groupByKeyword(events, keywords),
		Events:        events,
		Entities:      entities,
	}, nil
}

// groupByKeyword maps each keyword id to the events whose lowercased
// content contains the keyword as whole words.
func groupByKeyword(events []CommEvent, keywords []topic.Keyword) map[string][]string {
	out := make(map[string][]string, len(keywords))
	patterns := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		out[kw.ID] = []string{}
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw.Term) + `\b`)
	}
	for _, e := range events {
		content := strings.ToLower(e.Content)
		for i, kw := range keywords {
			if patterns[i].MatchString(content) {
				out[kw.ID] = append(out[kw.ID], e.ID)
			}
		}
	}
	return out
}
