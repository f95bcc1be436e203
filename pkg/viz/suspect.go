package viz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/commscope/backend/internal/util"
	"github.com/commscope/backend/pkg/common"
	"github.com/commscope/backend/pkg/loader"
	"github.com/commscope/backend/pkg/logger"
)

// DefaultSuspect is analysed when neither the request nor the
// configuration names an entity.
const DefaultSuspect = "Nadia Conti"

const undatedCommunication = "2040-01-01T00:00:00"

var suspiciousKeywords = []string{
	"permit", "authorization", "clearance", "secret", "private", "special",
	"arrangement", "deal", "payment", "money", "cash", "funding",
	"restricted", "access", "corridor", "bypass", "loophole",
	"mining", "extraction", "drilling", "equipment", "operation",
}

var (
	permitTerms   = []string{"permit", "authorization", "approval", "clearance"}
	timelineTerms = []string{"permit", "authorization"}
)

// Recommendations of the suspect report, by number of indicators.
const (
	RecommendInvestigate = "INVESTIGATE FURTHER"
	RecommendMonitor     = "MONITOR"
	RecommendLowRisk     = "LOW RISK"
)

// SuspectAnalysis profiles the communications of one entity and scores
// them against a fixed set of suspicion indicators.
type SuspectAnalysis struct{ Deps }

func (*SuspectAnalysis) Name() string  { return "suspect_analysis" }
func (*SuspectAnalysis) Title() string { return "Suspect Analysis" }
func (*SuspectAnalysis) Description() string {
	return "Visual analysis of an entity's activities to evaluate suspicions of illegal activities"
}
func (*SuspectAnalysis) Options() any { return &SuspectOptions{} }

type SuspectComm struct {
	ID       string `json:"id"`
	Datetime string `json:"datetime"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Hour     int    `json:"hour"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Content  string `json:"content"`
	IsSender bool   `json:"is_sender"`
}

func (c SuspectComm) otherParty() string {
	if c.IsSender {
		return c.Target
	}
	return c.Source
}

type SuspiciousMessage struct {
	SuspectComm
	Keywords       []string `json:"keywords"`
	SuspicionScore int      `json:"suspicion_score"`
}

type TimeBuckets struct {
	EarlyMorning  int `json:"early_morning"`
	BusinessHours int `json:"business_hours"`
	Evening       int `json:"evening"`
	LateNight     int `json:"late_night"`
}

func (b *TimeBuckets) add(hour int) {
	switch {
	case hour >= 5 && hour <= 7:
		b.EarlyMorning++
	case hour >= 8 && hour <= 17:
		b.BusinessHours++
	case hour >= 18 && hour <= 22:
		b.Evening++
	default:
		b.LateNight++
	}
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SuspectProfile struct {
	TotalCommunications int       `json:"total_communications"`
	DateRange           DateRange `json:"date_range"`
	TopContacts         Counts    `json:"top_contacts"`
}

type CommunicationPatterns struct {
	TimeDistribution        TimeBuckets `json:"time_distribution"`
	HourlyDistribution      [24]int     `json:"hourly_distribution"`
	SuspiciousMessagesCount int         `json:"suspicious_messages_count"`
}

type KeywordReport struct {
	KeywordMentions    Counts              `json:"keyword_mentions"`
	SuspiciousMessages []SuspiciousMessage `json:"suspicious_messages"`
}

type AuthorityPatterns struct {
	PermitRelated            []SuspectComm `json:"permit_related"`
	AuthorityAbuseIndicators []Indicator   `json:"authority_abuse_indicators"`
}

type NetworkNode struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"`
	Category           string `json:"category"`
	CommunicationCount int    `json:"communication_count"`
}

type NetworkLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
	Type   string `json:"type"`
}

type Network struct {
	Nodes []NetworkNode `json:"nodes"`
	Links []NetworkLink `json:"links"`
}

type TimelineEvent struct {
	ID             string `json:"id"`
	Datetime       string `json:"datetime"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	OtherParty     string `json:"other_party"`
	ContentPreview string `json:"content_preview"`
	Content        string `json:"content"`
	IsSender       bool   `json:"is_sender"`
	EventType      string `json:"event_type"`
	Order          int    `json:"order"`
}

type Indicator struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type SuspicionAnalysis struct {
	Indicators     []Indicator `json:"indicators"`
	OverallScore   int         `json:"overall_score"`
	Recommendation string      `json:"recommendation"`
}

type SuspectReport struct {
	Entity                string                `json:"entity"`
	Profile               SuspectProfile        `json:"suspect_profile"`
	CommunicationPatterns CommunicationPatterns `json:"communication_patterns"`
	KeywordAnalysis       KeywordReport         `json:"keyword_analysis"`
	AuthorityPatterns     AuthorityPatterns     `json:"authority_patterns"`
	NetworkData           Network               `json:"network_data"`
	Timeline              []TimelineEvent       `json:"timeline"`
	SuspicionAnalysis     SuspicionAnalysis     `json:"suspicion_analysis"`
}

func (v *SuspectAnalysis) Data(ctx context.Context, params Params) (any, error) {
	opts := SuspectOptions{Entity: v.Config.SuspectEntity}
	if err := Decode(params, &opts); err != nil {
		return nil, err
	}
	if opts.Entity == "" {
		opts.Entity = DefaultSuspect
	}

	if v.Config.CommunicationFile == "" {
		return failure("Communication file not configured"), nil
	}
	g, err := loader.LoadGraph(ctx, v.Files, v.Config.CommunicationFile)
	if err != nil {
		return failure("Analysis error: %v", err), nil
	}

	comms := suspectCommunications(g, opts.Entity)
	if len(comms) == 0 {
		return failure("No communications found for %s", opts.Entity), nil
	}
	return suspectReport(opts.Entity, comms), nil
}

// suspectCommunications returns the links sent or received by entity,
// ordered by their datetime text.
func suspectCommunications(g *common.Graph, entity string) []SuspectComm {
	var out []SuspectComm
	for _, l := range g.EdgeList() {
		if l.Source() != entity && l.Target() != entity {
			continue
		}
		raw := l.Get("datetime")
		parse := raw
		if parse == "" {
			parse = undatedCommunication
		}
		ts, err := parseTimestamp(parse)
		if err != nil {
			logger.Warn("skipping communication with bad datetime", "event", l.Get("event_id"), "datetime", raw, "err", err)
			continue
		}
		out = append(out, SuspectComm{
			ID:       l.Get("event_id"),
			Datetime: raw,
			Date:     ts.Format(dateLayout),
			Time:     ts.Format("15:04:05"),
			Hour:     ts.Hour(),
			Source:   l.Source(),
			Target:   l.Target(),
			Content:  l.Get("content"),
			IsSender: l.Source() == entity,
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Datetime < out[b].Datetime })
	return out
}

func suspectReport(entity string, comms []SuspectComm) SuspectReport {
	contacts := newCounter()
	var buckets TimeBuckets
	var hourly [24]int
	for _, c := range comms {
		if other := c.otherParty(); other != "" {
			contacts.inc(other)
		}
		hourly[c.Hour]++
		buckets.add(c.Hour)
	}

	mentions := newCounter()
	suspicious := []SuspiciousMessage{}
	flagged := map[string]bool{}
	permit := []SuspectComm{}
	for _, c := range comms {
		content := strings.ToLower(c.Content)
		var found []string
		for _, kw := range suspiciousKeywords {
			if strings.Contains(content, kw) {
				mentions.inc(kw)
				found = append(found, kw)
			}
		}
		if len(found) > 0 {
			suspicious = append(suspicious, SuspiciousMessage{SuspectComm: c, Keywords: found, SuspicionScore: len(found)})
			flagged[c.ID] = true
		}
		if containsAny(content, permitTerms) {
			permit = append(permit, c)
		}
	}

	network := Network{
		Nodes: []NetworkNode{{ID: entity, Name: entity, Type: "Person", Category: "central", CommunicationCount: len(comms)}},
		Links: []NetworkLink{},
	}
	for _, e := range contacts.entries {
		network.Nodes = append(network.Nodes, NetworkNode{ID: e.Key, Name: e.Key, Type: "Person", Category: "contact", CommunicationCount: e.Count})
		network.Links = append(network.Links, NetworkLink{Source: entity, Target: e.Key, Weight: e.Count, Type: "communication"})
	}

	timeline := make([]TimelineEvent, len(comms))
	for i, c := range comms {
		kind := "normal"
		switch {
		case flagged[c.ID]:
			kind = "suspicious"
		case containsAny(strings.ToLower(c.Content), timelineTerms):
			kind = "permit_related"
		}
		timeline[i] = TimelineEvent{
			ID:             c.ID,
			Datetime:       c.Datetime,
			Date:           c.Date,
			Time:           c.Time,
			OtherParty:     c.otherParty(),
			ContentPreview: util.Preview(c.Content, 100),
			Content:        c.Content,
			IsSender:       c.IsSender,
			EventType:      kind,
			Order:          i,
		}
	}

	indicators := suspicionIndicators(len(comms), buckets, mentions, len(permit), contacts)
	return SuspectReport{
		Entity: entity,
		Profile: SuspectProfile{
			TotalCommunications: len(comms),
			DateRange:           DateRange{Start: comms[0].Date, End: comms[len(comms)-1].Date},
			TopContacts:         contacts.mostCommon(10),
		},
		CommunicationPatterns: CommunicationPatterns{
			TimeDistribution:        buckets,
			HourlyDistribution:      hourly,
			SuspiciousMessagesCount: len(suspicious),
		},
		KeywordAnalysis: KeywordReport{
			KeywordMentions:    mentions.mostCommon(10),
			SuspiciousMessages: suspicious[:min(20, len(suspicious))],
		},
		AuthorityPatterns: AuthorityPatterns{PermitRelated: permit, AuthorityAbuseIndicators: []Indicator{}},
		NetworkData:       network,
		Timeline:          timeline,
		SuspicionAnalysis: SuspicionAnalysis{
			Indicators:     indicators,
			OverallScore:   len(indicators),
			Recommendation: recommendation(len(indicators)),
		},
	}
}

func suspicionIndicators(total int, buckets TimeBuckets, mentions *counter, permit int, contacts *counter) []Indicator {
	out := []Indicator{}
	if float64(buckets.LateNight) > float64(total)*0.2 {
		out = append(out, Indicator{
			Type:        "timing",
			Description: fmt.Sprintf("High number of late-night communications (%d out of %d)", buckets.LateNight, total),
			Severity:    "medium",
		})
	}
	if len(mentions.entries) > 0 {
		keys := mentions.keys()
		out = append(out, Indicator{
			Type:        "content",
			Description: "Multiple suspicious keywords found: " + strings.Join(keys[:min(5, len(keys))], ", "),
			Severity:    "high",
		})
	}
	if permit > 3 {
		out = append(out, Indicator{
			Type:        "authority_abuse",
			Description: fmt.Sprintf("Frequent involvement in permit-related communications (%d instances)", permit),
			Severity:    "high",
		})
	}
	var frequent []string
	for _, e := range contacts.entries {
		if e.Count > 5 {
			frequent = append(frequent, e.Key)
		}
	}
	if len(frequent) > 0 {
		out = append(out, Indicator{
			Type:        "network",
			Description: "Frequent communication with key entities: " + strings.Join(frequent[:min(3, len(frequent))], ", "),
			Severity:    "medium",
		})
	}
	return out
}

func recommendation(indicators int) string {
	switch {
	case indicators >= 3:
		return RecommendInvestigate
	case indicators >= 1:
		return RecommendMonitor
	default:
		return RecommendLowRisk
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// KeyCount is one key of a Counts object.
type KeyCount struct {
	Key   string
	Count int
}

// Counts is a JSON object whose keys keep their order.
type Counts []KeyCount

func (c Counts) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range c {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		fmt.Fprintf(&b, ":%d", e.Count)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// counter counts keys in the order they are first seen.
type counter struct {
	entries Counts
	index   map[string]int
}

func newCounter() *counter {
	return &counter{index: map[string]int{}}
}

func (c *counter) inc(key string) {
	i, ok := c.index[key]
	if !ok {
		i = len(c.entries)
		c.index[key] = i
		c.entries = append(c.entries, KeyCount{Key: key})
	}
	c.entries[i].Count++
}

func (c *counter) keys() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Key
	}
	return out
}

// mostCommon returns the n largest counts. Equal counts keep the order in
// which their keys were first seen.
func (c *counter) mostCommon(n int) Counts {
	out := append(Counts{}, c.entries...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	return out[:min(n, len(out))]
}
