package job

// ErrorEntry records a detail page that could not be parsed. Message is for
// diagnostics only.
type ErrorEntry struct {
	SourceURL string `json:"source_url"`
	Message   string `json:"message"`
}

// Result is the outcome of one extraction attempt: exactly one of Record and
// Error is set.
type Result struct {
	Record *Record
	Error  *ErrorEntry
}

func Success(r *Record) Result { return Result{Record: r} }

func Failure(url, msg string) Result {
	return Result{Error: &ErrorEntry{SourceURL: url, Message: msg}}
}

func (r Result) OK() bool { return r.Record != nil }

// Split partitions results into records and errors, keeping input order.
func Split(results []Result) ([]*Record, []ErrorEntry) {
	var records []*Record
	var errs []ErrorEntry
	for _, res := range results {
		switch {
		case res.Record != nil:
			records = append(records, res.Record)
		case res.Error != nil:
			errs = append(errs, *res.Error)
		}
	}
	return records, errs
}
