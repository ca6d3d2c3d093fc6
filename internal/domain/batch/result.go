package batch

import "github.com/kailas-cloud/semsearch/internal/domain/kind"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of indexing one entity.
type Result struct {
	id     string
	kind   kind.Kind
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id string, k kind.Kind) Result { return Result{id: id, kind: k, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(id string, k kind.Kind, err error) Result {
	return Result{id: id, kind: k, status: StatusError, err: err}
}

// ID returns the entity key.
func (r Result) ID() string { return r.id }

// Kind returns the entity kind.
func (r Result) Kind() kind.Kind { return r.kind }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Failure is a failed item as reported to callers.
type Failure struct {
	ID     string
	Kind   kind.Kind
	Reason string
}

// Report aggregates per-item results of an indexing call.
type Report struct {
	Succeeded int
	Failed    int
	Failures  []Failure
}

// NewReport folds results into a report, keeping failure order.
func NewReport(results []Result) Report {
	rep := Report{Failures: []Failure{}}
	for _, r := range results {
		if r.status == StatusOK {
			rep.Succeeded++
			continue
		}
		rep.Failed++
		reason := "unknown error"
		if r.err != nil {
			reason = r.err.Error()
		}
		rep.Failures = append(rep.Failures, Failure{ID: r.id, Kind: r.kind, Reason: reason})
	}
	return rep
}

// Merge adds other's counts and failures to r.
func (r *Report) Merge(other Report) {
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
}

// Partial reports whether some but not all items failed.
func (r Report) Partial() bool { return r.Failed > 0 && r.Succeeded > 0 }
