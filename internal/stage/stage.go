// Package stage runs one pipeline stage: a single capability call whose
// free-form reply is reduced to a list of records.
package stage

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/agent"
	"github.com/sells-group/outreach-cli/internal/extract"
)

// Run invokes the handle with prompt, extracts the JSON object from its reply
// and decodes the records under key. A reply without key yields an empty,
// non-nil slice. Extraction failures satisfy errors.Is(err,
// extract.ErrMalformedOutput).
func Run[T any](ctx context.Context, handle agent.Agent, prompt, key string) ([]T, error) {
	text, err := handle.Invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}

	obj, err := extract.Parse(text)
	if err != nil {
		return nil, err
	}

	records := []T{}
	if err := obj.Records(key, &records); err != nil {
		return nil, eris.Wrap(err, "stage: read records")
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}
