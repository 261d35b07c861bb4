package queue

import (
	"errors"
	"fmt"
	"testing"

	"rag-chatbot-backend/internal/engine"
)

func TestDirtyFailure(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		dirty bool
	}{
		{
			name: "embedding outage before any commit",
			err: &engine.PartialIngestionError{
				DocumentID: "doc",
				Processed:  0,
				Total:      3,
				RolledBack: false,
				Err:        fmt.Errorf("%w: quota exhausted", engine.ErrEmbedding),
			},
			dirty: false,
		},
		{
			name: "index failure with clean rollback",
			err: &engine.PartialIngestionError{
				DocumentID: "doc",
				Processed:  3,
				Total:      3,
				RolledBack: true,
				Err:        engine.ErrDimensionMismatch,
			},
			dirty: false,
		},
		{
			name: "index failure and rollback failure",
			err: &engine.PartialIngestionError{
				DocumentID: "doc",
				Processed:  3,
				Total:      3,
				RolledBack: false,
				Err:        fmt.Errorf("store unreachable"),
			},
			dirty: true,
		},
		{
			name:  "plain error",
			err:   errors.New("context deadline exceeded"),
			dirty: false,
		},
		{
			name: "wrapped partial error",
			err: fmt.Errorf("ingest: %w", &engine.PartialIngestionError{
				DocumentID: "doc",
				Processed:  2,
				Total:      2,
				RolledBack: false,
				Err:        fmt.Errorf("store unreachable"),
			}),
			dirty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dirtyFailure(tt.err); got != tt.dirty {
				t.Errorf("dirtyFailure() = %v, want %v", got, tt.dirty)
			}
		})
	}
}
