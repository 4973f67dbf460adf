package ops

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hpungsan/postclip/internal/entry"
	"github.com/hpungsan/postclip/internal/errors"
)

// MaxImportBytes bounds the size of an import file.
const MaxImportBytes = 16 << 20

// ImportMode controls how imported entries combine with the saved list.
type ImportMode string

const (
	ImportModeAppend  ImportMode = "append"  // keep the list, add entries with new URLs
	ImportModeReplace ImportMode = "replace" // replace the list with the file's entries
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required; .json or .csv
	Mode ImportMode // default: append
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// Import loads entries from a file into the saved list.
//
// A .json file holds an array of entries in any shape Normalize accepts, or an
// object with a "links" array. A .csv file carries a header row naming the
// columns. Entries with an empty URL, or a URL already seen, are skipped.
func Import(ctx context.Context, env *Env, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeAppend
	}
	if input.Mode != ImportModeAppend && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: append, replace")
	}

	if err := ValidatePath(input.Path, PathCheckRead, env.Config, env.ExportDir, ".json", ".csv"); err != nil {
		return nil, err
	}

	file, err := openRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > MaxImportBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file exceeds %d bytes", MaxImportBytes))
	}

	var incoming []entry.Entry
	if strings.EqualFold(filepath.Ext(input.Path), ".csv") {
		incoming, err = parseCSV(data)
	} else {
		incoming, err = parseJSON(data)
	}
	if err != nil {
		return nil, err
	}

	var base []entry.Entry
	if input.Mode == ImportModeAppend {
		base, err = env.Store.GetAll(ctx)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(base)+len(incoming))
	for _, e := range base {
		seen[e.URL] = true
	}

	out := &ImportOutput{}
	merged := append([]entry.Entry{}, base...)
	for _, e := range incoming {
		if e.URL == "" || seen[e.URL] {
			out.Skipped++
			continue
		}
		seen[e.URL] = true
		merged = append(merged, e)
		out.Imported++
	}

	if err := env.Store.SetAll(ctx, merged); err != nil {
		return nil, err
	}
	out.Total = len(merged)
	return out, nil
}

func parseJSON(data []byte) ([]entry.Entry, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid JSON: %v", err))
	}
	// A storage dump wraps the list as {"links": [...]}
	if obj, ok := v.(map[string]any); ok {
		if links, ok := obj["links"]; ok {
			v = links
		}
	}
	if _, ok := v.([]any); !ok {
		return nil, errors.NewInvalidRequest("import file must contain a JSON array of links")
	}
	return entry.NormalizeList(v), nil
}

func parseCSV(data []byte) ([]entry.Entry, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\ufeff")))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid CSV: %v", err))
	}
	if len(records) == 0 {
		return []entry.Entry{}, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	out := make([]entry.Entry, 0, len(records)-1)
	for _, rec := range records[1:] {
		obj := make(map[string]any, len(header))
		for i, name := range header {
			if i < len(rec) {
				obj[name] = rec[i]
			}
		}
		out = append(out, entry.Normalize(obj))
	}
	return out, nil
}
