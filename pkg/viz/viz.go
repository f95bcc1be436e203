// Package viz holds the dashboard's analytic views. Each view turns the
// configured input files and a set of request parameters into a
// JSON-serializable payload. Views are registered once in a Registry and
// looked up by name.
package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/commscope/backend/pkg/common"
	"github.com/commscope/backend/pkg/loader"
	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/topic"

	"github.com/invopop/jsonschema"
)

// ErrNotFound is returned for unknown visualization names.
var ErrNotFound = errors.New("Visualization not found")

// Params are the merged query, form and body parameters of a request.
type Params map[string]any

// Visualization is one analytic view.
type Visualization interface {
	Name() string
	Title() string
	Description() string
	// Options returns a zero options record, or nil when the view takes
	// no parameters.
	Options() any
	Data(ctx context.Context, params Params) (any, error)
}

// Failure is the payload of a view that could not produce its data.
type Failure struct {
	Error string `json:"error"`
}

func failure(format string, args ...any) Failure {
	f := Failure{Error: fmt.Sprintf(format, args...)}
	logger.Warn("visualization failed", "err", f.Error)
	return f
}

// Config holds the input files and analysis settings of the views.
type Config struct {
	DataFile          string
	CommunicationFile string
	RelationshipsFile string
	SimilarityFile    string
	AnalysisYear      int
	AnalysisMonth     time.Month
	SuspectEntity     string
}

// Deps are the collaborators shared by all views.
type Deps struct {
	Config Config
	Files  loader.FileLoader
	Topics topic.Modeler
}

func (d Deps) graph(ctx context.Context, path, what string) (*common.Graph, *Failure) {
	if path == "" {
		f := failure("%s file not configured", what)
		return nil, &f
	}
	g, err := loader.LoadGraph(ctx, d.Files, path)
	if err != nil {
		f := failure("Could not load %s file: %v", strings.ToLower(what), err)
		return nil, &f
	}
	return g, nil
}

// Info describes a registered view.
type Info struct {
	Name        string             `json:"name"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Options     *jsonschema.Schema `json:"options,omitempty"`
}

// Registry is a fixed set of views. It is not modified after NewRegistry.
type Registry struct {
	order  []string
	byName map[string]Visualization
}

// NewRegistry registers vs in order. Later duplicates replace earlier ones.
func NewRegistry(vs ...Visualization) *Registry {
	r := &Registry{byName: make(map[string]Visualization, len(vs))}
	for _, v := range vs {
		if _, dup := r.byName[v.Name()]; !dup {
			r.order = append(r.order, v.Name())
		}
		r.byName[v.Name()] = v
	}
	return r
}

// Default returns the registry with every view of the dashboard.
func Default(d Deps) *Registry {
	return NewRegistry(
		&TimePatterns{d},
		&DailyPatterns{d},
		&TopicModeling{d},
		&GraphView{d},
		&KeywordAnalysis{d},
		&SuspectAnalysis{d},
	)
}

// Get returns the view registered under name.
func (r *Registry) Get(name string) (Visualization, error) {
	v, ok := r.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// List describes the registered views in registration order.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		v := r.byName[name]
		info := Info{Name: name, Title: v.Title(), Description: v.Description()}
		if opts := v.Options(); opts != nil {
			info.Options = Schema(opts)
		}
		out = append(out, info)
	}
	return out
}

// Data runs the named view.
func (r *Registry) Data(ctx context.Context, name string, params Params) (any, error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return v.Data(ctx, params)
}
