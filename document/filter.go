package document

import (
	"context"
	"strings"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"

	"github.com/declarr/declarr/faults"
)

// Filter applies a jq expression to a dumped document and re-encodes the
// results. A filter yielding multiple values produces a YAML document stream.
func Filter(ctx context.Context, data []byte, expression string) ([]byte, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return data, nil
	}

	query, err := gojq.Parse(trimmed)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "invalid jq expression", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "invalid jq expression", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, faults.NewTypedError(faults.InternalError, "dumped document is not valid yaml", err)
	}

	iterator := code.RunWithContext(ctx, doc)
	results := make([]any, 0, 1)
	for {
		value, ok := iterator.Next()
		if !ok {
			break
		}
		if valueErr, isErr := value.(error); isErr {
			return nil, faults.NewTypedError(faults.ValidationError, "failed to evaluate jq expression", valueErr)
		}
		results = append(results, value)
	}

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(dumpIndent)
	for _, result := range results {
		if err := encoder.Encode(result); err != nil {
			_ = encoder.Close()
			return nil, faults.NewTypedError(faults.InternalError, "failed to encode filtered document", err)
		}
	}
	if err := encoder.Close(); err != nil {
		return nil, faults.NewTypedError(faults.InternalError, "failed to encode filtered document", err)
	}
	return []byte(buf.String()), nil
}
