package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DefaultConcurrency bounds the number of ids processed at once.
const DefaultConcurrency = 4

// Result is the outcome for one id.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult aggregates the results of one batch.
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray accepts a single string, a JSON array encoded as a
// string, or an array of strings. Duplicate ids are dropped.
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var items []any
	switch v := param.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		var decoded []string
		if strings.HasPrefix(v, "[") && json.Unmarshal([]byte(v), &decoded) == nil {
			if len(decoded) == 0 {
				return nil, fmt.Errorf("%s cannot be empty", paramName)
			}
			for _, s := range decoded {
				items = append(items, s)
			}
		} else {
			items = []any{v}
		}
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case []any:
		items = v
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
		}
		if s = strings.TrimSpace(s); s == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// Process runs fn for every id with at most DefaultConcurrency calls in
// flight. Results keep the order of ids.
func Process(ctx context.Context, ids []string, fn func(ctx context.Context, id string) (string, error)) []Result {
	results := make([]Result, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = NewErrorResult(id, err)
				return nil
			}
			res, err := fn(gctx, id)
			if err != nil {
				results[i] = NewErrorResult(id, err)
				return nil
			}
			results[i] = NewSuccessResult(id, res)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Summarize counts successes and failures.
func Summarize(results []Result) BatchResult {
	br := BatchResult{Total: len(results), Results: results}
	for _, r := range results {
		if r.Status == StatusSuccess {
			br.Successful++
		} else {
			br.Failed++
		}
	}
	return br
}

// FormatResults renders results as indented JSON.
func FormatResults(results []Result) string {
	jsonBytes, _ := json.MarshalIndent(Summarize(results), "", "  ")
	return string(jsonBytes)
}

// NewSuccessResult creates a success result
func NewSuccessResult(id, message string) Result {
	return Result{ID: id, Status: StatusSuccess, Result: message}
}

// NewErrorResult creates an error result
func NewErrorResult(id string, err error) Result {
	return Result{ID: id, Status: StatusError, Error: err.Error()}
}
