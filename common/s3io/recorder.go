package s3io

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cortx-e2e/common/cterror"
	"cortx-e2e/common/datamanager"

	"golang.org/x/sync/errgroup"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// Recorder writes objects for User and keeps the data manager record of them.
type Recorder struct {
	Client *Client
	DM     *datamanager.DataManager
	User   string
}

func (r *Recorder) WriteObject(ctx context.Context, bucket, key string, seed, size int64) (datamanager.FileRecord, error) {
	rec, err := r.Client.PutGenerated(ctx, bucket, key, seed, size)
	if err != nil {
		return rec, err
	}
	if err := r.DM.AddFileToBucket(r.User, bucket, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// VerifyBucket reads back every object recorded for bucket and returns how
// many were verified. All objects are read, the error lists every mismatch.
func (r *Recorder) VerifyBucket(ctx context.Context, bucket string) (int, error) {
	buckets, err := r.DM.GetAllBucketsDataForUser(r.User)
	if err != nil {
		return 0, err
	}
	files := datamanager.GetFilesWithinBucket(buckets, bucket)
	if files == nil {
		return 0, cterror.NewException(cterror.DataManagerError, "no record of bucket %s for %s", bucket, r.User)
	}
	verified := 0
	var failed []string
	var firstErr error
	for _, f := range files {
		if err := r.Client.VerifyObject(ctx, bucket, f); err != nil {
			logf.Log.Info("Verification failed", "bucket", bucket, "object", f.Name, "error", err)
			failed = append(failed, f.Name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		verified++
	}
	if firstErr != nil {
		return verified, cterror.WrapException(firstErr, cterror.DataIntegrityError, "%d of %d objects of %s failed: %s",
			len(failed), len(files), bucket, strings.Join(failed, ","))
	}
	logf.Log.Info("Bucket verified", "user", r.User, "bucket", bucket, "objects", verified)
	return verified, nil
}

// ObjectKey is the key of the ix'th object written by ParallelWrite.
func ObjectKey(prefix string, ix int) string {
	return fmt.Sprintf("%s%06d", prefix, ix)
}

// ParallelWrite writes n objects of size bytes with at most workers uploads in
// flight. Object ix gets seed seedBase+ix. The records of the objects written
// are returned in key order along with the first error.
func ParallelWrite(ctx context.Context, r *Recorder, bucket, prefix string, n, workers int, size, seedBase int64) ([]datamanager.FileRecord, error) {
	if workers <= 0 || n < 0 {
		return nil, cterror.NewException(cterror.InvalidArgs, "workers %d objects %d", workers, n)
	}
	var mu sync.Mutex
	written := make([]*datamanager.FileRecord, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for ix := 0; ix < n; ix++ {
		if gctx.Err() != nil {
			break
		}
		ix := ix
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := r.WriteObject(gctx, bucket, ObjectKey(prefix, ix), seedBase+int64(ix), size)
			if err != nil {
				return err
			}
			mu.Lock()
			written[ix] = &rec
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	var recs []datamanager.FileRecord
	for _, rec := range written {
		if rec != nil {
			recs = append(recs, *rec)
		}
	}
	logf.Log.Info("Parallel write", "bucket", bucket, "requested", n, "written", len(recs), "error", err)
	return recs, err
}
