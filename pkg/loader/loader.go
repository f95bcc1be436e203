// Package loader reads the input files of the dashboard: node-link graph
// JSON documents and the entity similarity CSV. Files live on the local
// filesystem or, with an "s3://" prefix, in the configured bucket.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/commscope/backend/pkg/common"
	"github.com/commscope/backend/pkg/loader/csv"
)

// S3Prefix marks paths that are object keys in the configured bucket.
const S3Prefix = "s3://"

// ErrNotConfigured is returned when a file path setting is empty.
var ErrNotConfigured = errors.New("file not configured")

// FileLoader returns the raw bytes stored under path.
type FileLoader interface {
	GetFile(ctx context.Context, path string) ([]byte, error)
}

// Source dispatches paths to the local or the remote loader.
type Source struct {
	Local  FileLoader
	Remote FileLoader
}

// NewSource returns a Source. remote may be nil when no bucket is
// configured; s3:// paths then fail.
func NewSource(local, remote FileLoader) *Source {
	return &Source{Local: local, Remote: remote}
}

// GetFile implements FileLoader.
func (s *Source) GetFile(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, ErrNotConfigured
	}
	if key, ok := strings.CutPrefix(path, S3Prefix); ok {
		if s.Remote == nil {
			return nil, fmt.Errorf("%s: object storage not configured", path)
		}
		return s.Remote.GetFile(ctx, key)
	}
	if s.Local == nil {
		return nil, fmt.Errorf("%s: local files not enabled", path)
	}
	return s.Local.GetFile(ctx, path)
}

// LoadGraph reads and decodes a node-link graph.
func LoadGraph(ctx context.Context, l FileLoader, path string) (*common.Graph, error) {
	data, err := l.GetFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return common.ParseGraph(data)
}

// LoadSimilarity reads a square, labelled similarity matrix.
func LoadSimilarity(ctx context.Context, l FileLoader, path string) (*common.SimilarityMatrix, error) {
	data, err := l.GetFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return csv.ParseSimilarity(data)
}
