package importer

import (
	"errors"
	"fmt"
)

// OutcomeKind classifies the result of a confirm call.
type OutcomeKind string

const (
	OutcomeApplied          OutcomeKind = "applied"
	OutcomeNotFound         OutcomeKind = "not_found"
	OutcomeChecksumMismatch OutcomeKind = "checksum_mismatch"
	OutcomeForbidden        OutcomeKind = "forbidden"
	OutcomeBusy             OutcomeKind = "busy"
	OutcomeRowFailed        OutcomeKind = "row_failed"
	OutcomeInternal         OutcomeKind = "internal"
)

var (
	ErrBatchNotFound    = errors.New("import batch not found or expired")
	ErrChecksumMismatch = errors.New("checksum does not match the staged batch")
	ErrForbidden        = errors.New("only the batch creator or an admin may confirm it")
	ErrBatchBusy        = errors.New("import batch is already being applied")
	ErrRowsFailed       = errors.New("import rows failed, nothing was applied")
)

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Outcome is the tagged result of applying a batch. Counts are only
// non-zero when Kind is OutcomeApplied.
type Outcome struct {
	Kind    OutcomeKind `json:"status"`
	Created int         `json:"created"`
	Updated int         `json:"updated"`
	Failed  int         `json:"failed"`
	Errors  []RowError  `json:"errors"`
	Detail  string      `json:"detail,omitempty"`

	cause error
}

func Applied(created, updated int) Outcome {
	return Outcome{Kind: OutcomeApplied, Created: created, Updated: updated, Errors: []RowError{}}
}

// Rejected builds a whole-batch failure with no row detail.
func Rejected(kind OutcomeKind, cause error) Outcome {
	return Outcome{Kind: kind, Errors: []RowError{}, Detail: cause.Error(), cause: cause}
}

// RowsFailed reports itemized row failures. Failed counts distinct rows.
func RowsFailed(errs []RowError) Outcome {
	seen := make(map[int]bool, len(errs))
	for _, e := range errs {
		seen[e.Row] = true
	}
	return Outcome{
		Kind:   OutcomeRowFailed,
		Failed: len(seen),
		Errors: errs,
		Detail: ErrRowsFailed.Error(),
		cause:  ErrRowsFailed,
	}
}

func (o Outcome) OK() bool { return o.Kind == OutcomeApplied }

// Err returns nil for an applied outcome and the failure cause otherwise.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	if o.cause != nil {
		return o.cause
	}
	return fmt.Errorf("import %s: %s", o.Kind, o.Detail)
}
