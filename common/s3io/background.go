package s3io

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"cortx-e2e/common/cterror"

	"github.com/google/uuid"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// IOStats counts the outcome of background IO operations.
type IOStats struct {
	Writes      int64
	WriteErrors int64
	Reads       int64
	ReadErrors  int64
	Mismatches  int64
}

func (s IOStats) String() string {
	return fmt.Sprintf("writes %d (%d failed) reads %d (%d failed, %d mismatched)",
		s.Writes, s.WriteErrors, s.Reads, s.ReadErrors, s.Mismatches)
}

// Errors is the number of failed operations.
func (s IOStats) Errors() int64 {
	return s.WriteErrors + s.ReadErrors + s.Mismatches
}

// BackgroundIO keeps Workers goroutines writing, reading back and deleting
// objects in Bucket until stopped.
type BackgroundIO struct {
	Client     *Client
	Bucket     string
	Workers    int
	ObjectSize int64
	// Pause between two iterations of a worker
	Pause time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	stats  struct {
		writes, writeErrors, reads, readErrors, mismatches int64
	}
}

func (b *BackgroundIO) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return cterror.NewException(cterror.InvalidArgs, "background io on %s already running", b.Bucket)
	}
	if b.Workers <= 0 || b.ObjectSize <= 0 {
		return cterror.NewException(cterror.InvalidArgs, "workers %d object size %d", b.Workers, b.ObjectSize)
	}
	ctx, b.cancel = context.WithCancel(ctx)
	logf.Log.Info("Starting background io", "bucket", b.Bucket, "workers", b.Workers, "objectSize", b.ObjectSize)
	for w := 0; w < b.Workers; w++ {
		b.wg.Add(1)
		go b.worker(ctx, w)
	}
	return nil
}

func (b *BackgroundIO) worker(ctx context.Context, id int) {
	defer b.wg.Done()
	rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	for ctx.Err() == nil {
		key := fmt.Sprintf("bgio-%d-%s", id, uuid.NewString())
		rec, err := b.Client.PutGenerated(ctx, b.Bucket, key, rnd.Int63(), b.ObjectSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			atomic.AddInt64(&b.stats.writes, 1)
			atomic.AddInt64(&b.stats.writeErrors, 1)
			logf.Log.V(1).Info("background write failed", "key", key, "error", err)
		} else {
			err = b.Client.VerifyObject(ctx, b.Bucket, rec)
			keep := false
			if ctx.Err() == nil {
				atomic.AddInt64(&b.stats.writes, 1)
				atomic.AddInt64(&b.stats.reads, 1)
				switch {
				case cterror.HasCode(err, cterror.DataIntegrityError):
					atomic.AddInt64(&b.stats.mismatches, 1)
					logf.Log.Info("background read mismatch", "key", key, "error", err)
					keep = true
				case err != nil:
					atomic.AddInt64(&b.stats.readErrors, 1)
					logf.Log.V(1).Info("background read failed", "key", key, "error", err)
					keep = true
				}
			}
			if !keep {
				b.deleteObject(key)
			}
		}
		if b.Pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(b.Pause):
			}
		}
	}
}

// deleteObject removes a verified object, also when the workers are being stopped.
func (b *BackgroundIO) deleteObject(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = b.Client.DeleteObject(ctx, b.Bucket, key)
}

// Stats returns the counts so far.
func (b *BackgroundIO) Stats() IOStats {
	return IOStats{
		Writes:      atomic.LoadInt64(&b.stats.writes),
		WriteErrors: atomic.LoadInt64(&b.stats.writeErrors),
		Reads:       atomic.LoadInt64(&b.stats.reads),
		ReadErrors:  atomic.LoadInt64(&b.stats.readErrors),
		Mismatches:  atomic.LoadInt64(&b.stats.mismatches),
	}
}

// Stop cancels the workers, waits for all of them to return and reports the
// final counts. Operations cut short by Stop are not counted.
func (b *BackgroundIO) Stop() IOStats {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
	stats := b.Stats()
	logf.Log.Info("Background io stopped", "bucket", b.Bucket, "stats", stats.String())
	return stats
}
