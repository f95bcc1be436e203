package viz

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/commscope/backend/pkg/topic"

	"github.com/go-playground/validator"
	"github.com/invopop/jsonschema"
)

var validate = validator.New()

// OptionsError reports request parameters that do not fit a view's options.
type OptionsError struct {
	Err error
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("invalid options: %v", e.Err)
}

func (e *OptionsError) Unwrap() error {
	return e.Err
}

// Decode copies params into dst, which should be pre-filled with defaults,
// and validates the result.
func Decode(p Params, dst any) error {
	b, err := json.Marshal(p)
	if err != nil {
		return &OptionsError{Err: err}
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return &OptionsError{Err: err}
	}
	if err := validate.Struct(dst); err != nil {
		return &OptionsError{Err: err}
	}
	return nil
}

// Schema describes an options record as JSON Schema.
func Schema(opts any) *jsonschema.Schema {
	r := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true, AllowAdditionalProperties: true}
	return r.Reflect(opts)
}

// Flag is a boolean that also accepts the strings query parameters carry.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(t)
	case float64:
		*f = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			*f = true
		case "", "0", "false", "no", "off":
			*f = false
		default:
			return fmt.Errorf("invalid boolean %q", t)
		}
	default:
		return fmt.Errorf("invalid boolean %s", b)
	}
	return nil
}

func (Flag) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Default: false}
}

// Number is an integer that also accepts numeric strings.
type Number int

func (n *Number) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*n = Number(t)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return fmt.Errorf("invalid number %q", t)
		}
		*n = Number(i)
	default:
		return fmt.Errorf("invalid number %s", b)
	}
	return nil
}

func (Number) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer"}
}

// TopicOptions configure topic extraction. Method also accepts
// "lda?vectorizer=bow" and unknown methods select bertopic.
type TopicOptions struct {
	Method       string      `json:"method,omitempty" validate:"omitempty,max=64" jsonschema:"enum=bertopic,enum=tfidf,enum=lda,default=bertopic"`
	Vectorizer   string      `json:"vectorizer,omitempty" validate:"omitempty,oneof=bow tfidf" jsonschema:"enum=bow,enum=tfidf"`
	NumTopics    topic.Count `json:"num_topics"`
	MinTopicSize Number      `json:"min_topic_size,omitempty" validate:"omitempty,min=2,max=10000" jsonschema:"minimum=2"`
}

func defaultTopicOptions(minTopicSize int) TopicOptions {
	return TopicOptions{NumTopics: topic.AutoCount(), MinTopicSize: Number(minTopicSize)}
}

func (o TopicOptions) extraction() topic.Options {
	method, vec := topic.ParseMethod(o.Method)
	if o.Vectorizer != "" {
		vec = topic.Vectorizer(o.Vectorizer)
	}
	return topic.Options{
		Method:       method,
		Vectorizer:   vec,
		NumTopics:    o.NumTopics,
		MinTopicSize: int(o.MinTopicSize),
	}
}

// DailyOptions configure the daily patterns view.
type DailyOptions struct {
	TopicOptions
	IncludeTopics Flag `json:"include_topics,omitempty"`
}

// SuspectOptions select the entity of the suspect report.
type SuspectOptions struct {
	Entity string `json:"entity,omitempty" validate:"omitempty,max=256"`
}
