// Package filter narrows parsed job records by per-field include and exclude
// tokens and summarises a run.
package filter

import (
	"github.com/jobharvest/rod-jobs/internal/job"
)

// Rule holds the tokens configured for one field.
type Rule struct {
	Field job.Field
	// Includes keeps records whose field contains every token.
	Includes []string
	// Excludes drops records whose field contains any token.
	Excludes []string
}

// Spec is applied rule by rule, in order.
type Spec []Rule

// AggregateLog summarises a run. The JSON keys are the ones downstream
// reports already read.
type AggregateLog struct {
	TotalCount           int `json:"Total Data Count"`
	SuccessCount         int `json:"Succesfully Parsed Data Count"`
	FilteredCount        int `json:"Filtered Data Count"`
	DistinctCompanyCount int `json:"% of Company"`
}

func keep(records []*job.Record, pred func(*job.Record) bool) []*job.Record {
	out := make([]*job.Record, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// Filter returns the records that pass spec, in input order. It never grows
// the set.
func Filter(records []*job.Record, spec Spec) []*job.Record {
	out := append([]*job.Record(nil), records...)
	for _, rule := range spec {
		for _, token := range rule.Includes {
			token := token
			out = keep(out, func(r *job.Record) bool { return r.Contains(rule.Field, token) })
		}
		for _, token := range rule.Excludes {
			token := token
			out = keep(out, func(r *job.Record) bool { return !r.Contains(rule.Field, token) })
		}
	}
	return out
}

// Apply drops failed attempts, filters the records and counts the run.
// results holds every extraction attempt, retries included.
func Apply(results []job.Result, spec Spec) ([]*job.Record, AggregateLog) {
	log := AggregateLog{TotalCount: len(results)}

	records, _ := job.Split(results)
	log.SuccessCount = len(records)

	filtered := Filter(records, spec)
	log.FilteredCount = len(filtered)
	log.DistinctCompanyCount = DistinctCompanies(filtered)
	return filtered, log
}

func DistinctCompanies(records []*job.Record) int {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.Company] = struct{}{}
	}
	return len(seen)
}
