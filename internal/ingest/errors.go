package ingest

import "fmt"

// DecodeError reports a dataset that cannot be decompressed or read. It is
// fatal to a run.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ingest: decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// BatchWriteError reports a batch whose upsert failed. Offset is the index of
// the batch's first row in the accepted row stream. The batcher logs it and
// moves on.
type BatchWriteError struct {
	Offset int
	Size   int
	Err    error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("ingest: write batch of %d rows at offset %d: %v", e.Size, e.Offset, e.Err)
}

func (e *BatchWriteError) Unwrap() error { return e.Err }
