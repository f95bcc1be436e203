package viz

import (
	"context"
	"fmt"
	"sort"

	"github.com/commscope/backend/pkg/common"
	"github.com/commscope/backend/pkg/logger"
)

var evidenceTypes = map[string]bool{"evidence_for": true, "related_to": true, "supports": true}

// TimePatterns places every timestamped event on the clock and lists the
// entities and evidence attached to it.
type TimePatterns struct{ Deps }

func (*TimePatterns) Name() string  { return "time_patterns" }
func (*TimePatterns) Title() string { return "Time of Day Patterns" }
func (*TimePatterns) Description() string {
	return "Visualization of event timing patterns with filtering capabilities"
}
func (*TimePatterns) Options() any { return nil }

type EventEndpoint struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	SubType string      `json:"sub_type"`
	Raw     common.Node `json:"raw"`
	Edge    common.Link `json:"edge"`
}

type Evidence struct {
	SourceID      string      `json:"source_id"`
	SourceType    string      `json:"source_type"`
	SourceSubType string      `json:"source_sub_type"`
	Edge          common.Link `json:"edge"`
	Raw           common.Node `json:"raw"`
}

type TimedEvent struct {
	ID            string          `json:"id"`
	Raw           common.Node     `json:"raw"`
	SubType       string          `json:"sub_type"`
	Hour          int             `json:"hour"`
	Minute        int             `json:"minute"`
	DayOfWeek     string          `json:"day_of_week"`
	FullTimestamp string          `json:"full_timestamp"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Text          string          `json:"text"`
	Sources       []EventEndpoint `json:"sources"`
	Targets       []EventEndpoint `json:"targets"`
	Evidence      []Evidence      `json:"evidence"`
}

type FilterOptions struct {
	EventTypes     []string `json:"event_types"`
	SourceTypes    []string `json:"source_types"`
	TargetTypes    []string `json:"target_types"`
	SourceEntities []string `json:"source_entities"`
	TargetEntities []string `json:"target_entities"`
	Dates          []string `json:"dates"`
}

type TimePatternsData struct {
	Events        []TimedEvent  `json:"events"`
	FilterOptions FilterOptions `json:"filter_options"`
}

func (v *TimePatterns) Data(ctx context.Context, _ Params) (any, error) {
	g, fail := v.graph(ctx, v.Config.DataFile, "Data")
	if fail != nil {
		return map[string]any{"error": fail.Error, "events": []TimedEvent{}, "filter_options": map[string]any{}}, nil
	}
	return timePatterns(g), nil
}

func timePatterns(g *common.Graph) TimePatternsData {
	nodes := g.NodeMap()
	edges := g.EdgeList()

	evidence := map[string][]common.Link{}
	for _, e := range edges {
		if evidenceTypes[e.Type()] {
			evidence[e.Target()] = append(evidence[e.Target()], e)
		}
	}

	sources := map[string][]EventEndpoint{}
	targets := map[string][]EventEndpoint{}
	endpoint := func(id string, n common.Node, e common.Link) EventEndpoint {
		return EventEndpoint{ID: id, Name: n.GetOr("name", "Unknown"), SubType: n.GetOr("sub_type", "Unknown"), Raw: n, Edge: e}
	}
	for _, e := range edges {
		src, ok1 := nodes[e.Source()]
		dst, ok2 := nodes[e.Target()]
		if !ok1 || !ok2 {
			continue
		}
		if src.Type() == "Entity" && dst.Type() == "Event" {
			sources[e.Target()] = append(sources[e.Target()], endpoint(e.Source(), src, e))
		}
		if src.Type() == "Event" && dst.Type() == "Entity" {
			targets[e.Source()] = append(targets[e.Source()], endpoint(e.Target(), dst, e))
		}
	}

	eventTypes, sourceTypes, targetTypes := set{}, set{}, set{}
	sourceEntities, targetEntities, dates := set{}, set{}, set{}

	events := []TimedEvent{}
	for _, n := range g.Nodes {
		if n.Type() != "Event" {
			continue
		}
		raw := eventTimestamp(n)
		if raw == "" {
			continue
		}
		text := n.Get("content")
		if text == "" {
			text = n.Get("findings")
		}
		if text == "" {
			text = n.Get("results")
		}
		subType := n.GetOr("sub_type", "Unknown")

		ts, err := parseTimestamp(raw)
		if err != nil {
			logger.Warn("unparseable event timestamp", "event", n.ID(), "timestamp", raw, "err", err)
			events = append(events, TimedEvent{
				ID: n.ID(), Raw: n, SubType: subType,
				DayOfWeek: "Unknown", FullTimestamp: "Unknown", Date: "Unknown", Time: "00:00:00",
				Text:    text,
				Sources: []EventEndpoint{}, Targets: []EventEndpoint{}, Evidence: []Evidence{},
			})
			continue
		}

		ev := []Evidence{}
		for _, e := range evidence[n.ID()] {
			src, ok := nodes[e.Source()]
			if !ok {
				continue
			}
			ev = append(ev, Evidence{
				SourceID:      e.Source(),
				SourceType:    src.GetOr("type", "Unknown"),
				SourceSubType: src.GetOr("sub_type", "Unknown"),
				Edge:          e,
				Raw:           src,
			})
		}

		src := nonNil(sources[n.ID()])
		dst := nonNil(targets[n.ID()])
		date := ts.Format(dateLayout)
		weekday := ts.Weekday().String()
		events = append(events, TimedEvent{
			ID:            n.ID(),
			Raw:           n,
			SubType:       subType,
			Hour:          ts.Hour(),
			Minute:        ts.Minute(),
			DayOfWeek:     weekday,
			FullTimestamp: fmt.Sprintf("%s (%s)", ts.Format(dateTimeLayout), weekday),
			Date:          date,
			Time:          ts.Format("15:04:05"),
			Text:          text,
			Sources:       src,
			Targets:       dst,
			Evidence:      ev,
		})

		eventTypes.add(subType)
		dates.add(date)
		for _, s := range src {
			sourceTypes.add(s.SubType)
			sourceEntities.add(s.Name)
		}
		for _, t := range dst {
			targetTypes.add(t.SubType)
			targetEntities.add(t.Name)
		}
	}

	logger.Debug("time patterns processed", "events", len(events))
	return TimePatternsData{
		Events: events,
		FilterOptions: FilterOptions{
			EventTypes:     eventTypes.sorted(),
			SourceTypes:    sourceTypes.sorted(),
			TargetTypes:    targetTypes.sorted(),
			SourceEntities: sourceEntities.sorted(),
			TargetEntities: targetEntities.sorted(),
			Dates:          dates.sorted(),
		},
	}
}

func eventTimestamp(n common.Node) string {
	if ts := n.Get("timestamp"); ts != "" {
		return ts
	}
	date, clock := n.Get("date"), n.Get("time")
	if date != "" && clock != "" {
		return date + " " + clock
	}
	return date
}

func nonNil(e []EventEndpoint) []EventEndpoint {
	if e == nil {
		return []EventEndpoint{}
	}
	return e
}

type set map[string]struct{}

func (s set) add(v string) { s[v] = struct{}{} }

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
