package sm2

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// BatchItem is one message and signature to verify.
type BatchItem struct {
	Message   []byte
	Signature *Signature
}

// BatchVerifier verifies many signatures against one key on a fixed pool
// of goroutines.
type BatchVerifier struct {
	pool *ants.Pool
}

// NewBatchVerifier creates a verifier with the given number of workers.
// Zero or a negative size uses GOMAXPROCS.
func NewBatchVerifier(workers int) (*BatchVerifier, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool, err := ants.NewPool(workers, ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}
	return &BatchVerifier{pool: pool}, nil
}

// Verify checks every item against key and returns one result per item in
// input order. Items not yet started when ctx is done are reported false and
// ctx.Err() is returned.
func (bv *BatchVerifier) Verify(ctx context.Context, key *PrecomputedKey, items []BatchItem, opts ...Option) ([]bool, error) {
	if key == nil {
		return nil, ErrPublicKeyEmpty
	}
	o := newOptions(opts)
	results := make([]bool, len(items))

	var wg sync.WaitGroup
	for i := range items {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return results, err
		}
		wg.Add(1)
		err := bv.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[i] = verify(key.PublicKey, key.scalarMult, items[i].Message, items[i].Signature, o)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return results, err
		}
	}
	wg.Wait()
	return results, ctx.Err()
}

// Release stops the worker pool.
func (bv *BatchVerifier) Release() {
	bv.pool.Release()
}

// BatchVerify runs bv.Verify with the engine defaults.
func (e *Engine) BatchVerify(ctx context.Context, bv *BatchVerifier, key *PrecomputedKey, items []BatchItem, opts ...Option) ([]bool, error) {
	start := time.Now()
	results, err := bv.Verify(ctx, key, items, e.options(e.mode, opts)...)
	e.observe("batch_verify", start, err)
	return results, err
}
