package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("o200k_base")
	})
	return enc, encErr
}

// TruncateInputs cuts every input to at most maxTokens tokens so a single
// long message cannot fail a whole embedding batch. A maxTokens <= 0
// disables truncation.
func TruncateInputs(inputs []string, maxTokens int) ([]string, error) {
	if maxTokens <= 0 {
		return inputs, nil
	}
	e, err := encoding()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(inputs))
	for i, in := range inputs {
		tokens := e.Encode(in, nil, nil)
		if len(tokens) <= maxTokens {
			out[i] = in
			continue
		}
		out[i] = e.Decode(tokens[:maxTokens])
	}
	return out, nil
}
