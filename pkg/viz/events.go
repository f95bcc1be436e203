package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/commscope/backend/pkg/common"
)

const (
	isoLayout      = "2006-01-02T15:04:05"
	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
)

// timestamp is a parsed event time. Zoned records whether the source
// carried a UTC offset, so it can be written back the same way.
type timestamp struct {
	time.Time
	Zoned bool
}

// parseTimestamp accepts ISO 8601 ("T" separated, with or without offset
// and fractional seconds), "YYYY-MM-DD HH:MM:SS" and plain dates.
func parseTimestamp(s string) (timestamp, error) {
	s = strings.TrimSpace(s)
	var layouts []string
	switch {
	case strings.Contains(s, "T"):
		layouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", isoLayout, "2006-01-02T15:04"}
	case strings.Contains(s, " "):
		layouts = []string{dateTimeLayout, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05Z07:00"}
	default:
		layouts = []string{dateLayout}
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return timestamp{Time: t, Zoned: strings.Contains(layout, "Z07:00")}, nil
		}
	}
	return timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ISO formats the timestamp as ISO 8601, with microseconds when present.
func (t timestamp) ISO() string {
	layout := isoLayout
	if t.Nanosecond() != 0 {
		layout += ".000000"
	}
	if t.Zoned {
		layout += "-07:00"
	}
	return t.Format(layout)
}

// Clock is the time of day as HH:MM:SS.
func (t timestamp) Clock() string {
	if t.Nanosecond() != 0 {
		return t.Format("15:04:05.000000")
	}
	return t.Format("15:04:05")
}

// EntityRef is an entity taking part in communication events.
type EntityRef struct {
	ID      string `json:"id"`
	SubType string `json:"sub_type"`
	Label   string `json:"label"`
}

// CommEvent is a communication event node with its sender and receivers.
type CommEvent struct {
	ID             string   `json:"id"`
	Timestamp      string   `json:"timestamp"`
	EntityID       string   `json:"entity_id"`
	EntitySubType  string   `json:"entity_sub_type"`
	Time           string   `json:"time,omitempty"`
	Day            int      `json:"day,omitempty"`
	Datetime       string   `json:"datetime"`
	Content        string   `json:"content"`
	TargetEntities []string `json:"target_entities"`
}

// monthEvents collects the Communication events of g in the given month
// that have a sender. Senders are found through "sent" edges into the
// event and receivers through "received" edges out of it. The entities
// seen are returned in the order they were first met.
func monthEvents(g *common.Graph, year int, month time.Month, requireContent bool) ([]CommEvent, []EntityRef) {
	nodes := g.NodeMap()
	in := map[string][]common.Link{}
	out := map[string][]common.Link{}
	for _, l := range g.EdgeList() {
		in[l.Target()] = append(in[l.Target()], l)
		out[l.Source()] = append(out[l.Source()], l)
	}

	var events []CommEvent
	var entities []EntityRef
	seen := map[string]int{}
	remember := func(e EntityRef) {
		if i, ok := seen[e.ID]; ok {
			entities[i] = e
			return
		}
		seen[e.ID] = len(entities)
		entities = append(entities, e)
	}
	ref := func(id string, n common.Node) EntityRef {
		return EntityRef{ID: id, SubType: n.SubType(), Label: n.Get("label")}
	}

	for _, n := range g.Nodes {
		if n.Type() != "Event" || n.SubType() != "Communication" {
			continue
		}
		raw := n.GetOr("timestamp", n.Get("date"))
		if raw == "" {
			continue
		}
		ts, err := parseTimestamp(raw)
		if err != nil || ts.Year() != year || ts.Month() != month {
			continue
		}

		id := n.ID()
		var sender *EntityRef
		for _, l := range in[id] {
			if l.Type() != "sent" {
				continue
			}
			src, ok := nodes[l.Source()]
			if ok && src.Type() == "Entity" {
				e := ref(l.Source(), src)
				sender = &e
				remember(e)
				break
			}
		}
		targets := []string{}
		for _, l := range out[id] {
			if l.Type() != "received" {
				continue
			}
			dst, ok := nodes[l.Target()]
			if ok && dst.Type() == "Entity" {
				remember(ref(l.Target(), dst))
				targets = append(targets, l.Target())
			}
		}

		content := n.Get("content")
		if sender == nil || (requireContent && content == "") {
			continue
		}
		events = append(events, CommEvent{
			ID:             id,
			Timestamp:      raw,
			EntityID:       sender.ID,
			EntitySubType:  sender.SubType,
			Datetime:       ts.ISO(),
			Content:        content,
			TargetEntities: targets,
			Time:           ts.Clock(),
			Day:            ts.Day(),
		})
	}
	if entities == nil {
		entities = []EntityRef{}
	}
	if events == nil {
		events = []CommEvent{}
	}
	return events, entities
}

func eventContents(events []CommEvent) []string {
	var out []string
	for _, e := range events {
		if e.Content != "" {
			out = append(out, e.Content)
		}
	}
	return out
}
