package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/commscope/backend/pkg/common"
)

// ErrEmpty is returned for files without any data rows.
var ErrEmpty = errors.New("CSV file is empty or contains no valid data")

// ParseSimilarity parses an entity similarity matrix. The first row holds
// the column labels after an (ignored) corner cell, and every following
// row starts with its entity label. Empty lines are skipped and empty
// cells read as 0.
func ParseSimilarity(content []byte) (*common.SimilarityMatrix, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var header []string
	m := &common.SimilarityMatrix{}
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read similarity csv: %w", err)
		}
		line++
		if blank(record) {
			continue
		}
		if header == nil {
			header = record
			continue
		}

		row := make([]float64, len(header)-1)
		for i := 1; i < len(record) && i < len(header); i++ {
			cell := strings.TrimSpace(record[i])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("similarity csv line %d column %q: %w", line, header[i], err)
			}
			row[i-1] = v
		}
		m.Entities = append(m.Entities, strings.TrimSpace(record[0]))
		m.Matrix = append(m.Matrix, row)
	}

	if len(m.Entities) == 0 {
		return nil, ErrEmpty
	}
	return m, nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
