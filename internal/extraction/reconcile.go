package extraction

import "sort"

// Reconcile merges the three extractors' candidate lists into one result set
// keyed by lower-cased biomarker name, keeping the highest-confidence
// candidate per key.
//
// Insertion order is pattern, then regex, then llm. An existing entry is
// replaced only when the newcomer's confidence is strictly greater, so ties
// keep the earlier-inserted candidate. This gives a confident model result
// the chance to override weaker pattern hits while never letting a
// lower-confidence item clobber a higher one, regardless of source.
func Reconcile(pattern, regex, llm []Candidate) []Candidate {
	merged := make(map[string]Candidate)
	for _, list := range [][]Candidate{pattern, regex, llm} {
		for _, c := range list {
			key := c.Key()
			if key == "" {
				continue
			}
			existing, ok := merged[key]
			if !ok || c.Confidence > existing.Confidence {
				merged[key] = c
			}
		}
	}

	out := make([]Candidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
