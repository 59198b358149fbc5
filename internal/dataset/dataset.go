// Package dataset loads scored, labeled populations from JSON and CSV
// files for offline chain builds and seeding.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Themis/internal/engine"
)

// FromJSON reads a population as a JSON array of groups, each an object
// with a name and a list of {score, positive} samples.
func FromJSON(r io.Reader) ([]engine.GroupSample, error) {
	var groups []engine.GroupSample
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&groups); err != nil {
		return nil, fmt.Errorf("decode population: %w", err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("population has no groups")
	}
	return groups, nil
}

// FromCSV reads a population from rows of group,score,outcome. A header
// row is skipped when its score column does not parse as a number.
// Outcome accepts 1/0, true/false, yes/no. Groups keep first-seen order
// and samples keep row order within their group.
func FromCSV(r io.Reader) ([]engine.GroupSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var groups []engine.GroupSample
	byName := map[string]int{}
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		row++

		score, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			if row == 1 {
				continue
			}
			return nil, fmt.Errorf("row %d: bad score %q", row, rec[1])
		}
		positive, err := parseOutcome(rec[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		name := strings.TrimSpace(rec[0])
		if name == "" {
			return nil, fmt.Errorf("row %d: empty group name", row)
		}
		idx, ok := byName[name]
		if !ok {
			idx = len(groups)
			byName[name] = idx
			groups = append(groups, engine.GroupSample{Name: name})
		}
		groups[idx].Samples = append(groups[idx].Samples, engine.Sample{Score: score, Positive: positive})
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("population has no groups")
	}
	return groups, nil
}

func parseOutcome(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "positive":
		return true, nil
	case "0", "false", "no", "negative":
		return false, nil
	}
	return false, fmt.Errorf("bad outcome %q", s)
}

// Size counts the samples across all groups.
func Size(groups []engine.GroupSample) int {
	n := 0
	for _, g := range groups {
		n += len(g.Samples)
	}
	return n
}
