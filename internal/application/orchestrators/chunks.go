package orchestrators

import (
	"context"
	"log/slog"
	"sync"

	"mms/internal/adapters/storage"
)

// chunkUpdateOps splits ops into groups no larger than the store's atomic
// batch limit.
func chunkUpdateOps(ops []storage.UpdateOp) [][]storage.UpdateOp {
	var chunks [][]storage.UpdateOp
	for len(ops) > 0 {
		n := len(ops)
		if n > storage.MaxBatchOps {
			n = storage.MaxBatchOps
		}
		chunks = append(chunks, ops[:n])
		ops = ops[n:]
	}
	return chunks
}

// commitChunks fans the chunks out as concurrent batch commits and joins on
// all of them, returning how many chunks failed.
// POST: every chunk has either committed or failed as a unit; committed
//
//	chunks are never rolled back on a later failure
func commitChunks(ctx context.Context, apply func(context.Context, []storage.UpdateOp) error, chunks [][]storage.UpdateOp) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []storage.UpdateOp) {
			defer wg.Done()
			if err := apply(ctx, chunk); err != nil {
				slog.Error("batch_chunk_failed", "chunk", i, "ops", len(chunk), "err", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(i, chunk)
	}
	wg.Wait()
	return failed
}
