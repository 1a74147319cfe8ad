// Package datamanager keeps the client side record of the objects written to S3 by the
// test users: which files went into which bucket, with enough metadata (seed, size,
// checksum) to regenerate or verify them later.
//
// The records are the client's belief about server state. The data manager never talks
// to the server to get any state from it, records may drift from what the server holds.
package datamanager

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cortx-e2e/common"
	"cortx-e2e/common/cterror"

	"github.com/google/renameio"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

type FileRecord struct {
	Name     string    `json:"name"`
	Checksum string    `json:"checksum"`
	Size     int64     `json:"size"`
	Seed     int64     `json:"seed"`
	Mtime    time.Time `json:"mtime"`
}

type BucketRecord struct {
	Name     string       `json:"name"`
	S3Prefix string       `json:"s3prefix"`
	Files    []FileRecord `json:"files"`
}

type UserRecord struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Buckets []BucketRecord `json:"buckets"`
}

// DataManager persists one json file per user under dir.
// A single lock serialises all writes, for all users.
type DataManager struct {
	dir  string
	lock sync.Mutex
}

func New(dir string) (*DataManager, error) {
	if dir == "" {
		return nil, cterror.NewException(cterror.InvalidConfig, "metadata directory not specified")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, cterror.WrapException(err, cterror.DataManagerError, "creating %s", dir)
	}
	return &DataManager{dir: dir}, nil
}

// UserFile returns the path of the json file holding user's record.
func (dm *DataManager) UserFile(user string) string {
	return filepath.Join(dm.dir, user+common.MetadataFileSuffix)
}

// checkUser rejects user names that would place the record outside the metadata directory.
func checkUser(user string) error {
	if user == "" || user == "." || strings.Contains(user, "..") || strings.ContainsAny(user, `/\`) {
		return cterror.NewException(cterror.InvalidArgs, "user name %q", user)
	}
	return nil
}

// readUser returns the record of user, an empty record if none exists yet.
func (dm *DataManager) readUser(user string) (*UserRecord, error) {
	if err := checkUser(user); err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(dm.UserFile(user))
	if os.IsNotExist(err) {
		return &UserRecord{Name: user, Buckets: []BucketRecord{}}, nil
	}
	if err != nil {
		return nil, cterror.WrapException(err, cterror.DataManagerError, "reading record of %s", user)
	}
	var rec UserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, cterror.WrapException(err, cterror.DataManagerError, "malformed record %s", dm.UserFile(user))
	}
	if rec.Name != user {
		return nil, cterror.NewException(cterror.UserMismatch, "record %s belongs to %q", dm.UserFile(user), rec.Name)
	}
	return &rec, nil
}

func (dm *DataManager) writeUser(rec *UserRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return cterror.WrapException(err, cterror.DataManagerError, "encoding record of %s", rec.Name)
	}
	if err := renameio.WriteFile(dm.UserFile(rec.Name), data, 0644); err != nil {
		return cterror.WrapException(err, cterror.DataManagerError, "writing record of %s", rec.Name)
	}
	return nil
}

// RegisterUser creates the record of user if required and sets its email.
func (dm *DataManager) RegisterUser(user string, email string) error {
	dm.lock.Lock()
	defer dm.lock.Unlock()

	rec, err := dm.readUser(user)
	if err != nil {
		return err
	}
	rec.Email = email
	return dm.writeUser(rec)
}

// AddFileToBucket records file in bucket for user. A file with the same name
// is replaced in place, a missing bucket or user record is created.
func (dm *DataManager) AddFileToBucket(user string, bucket string, file FileRecord) error {
	if user == "" || bucket == "" || file.Name == "" {
		return cterror.NewException(cterror.InvalidArgs, "user %q bucket %q file %q", user, bucket, file.Name)
	}
	dm.lock.Lock()
	defer dm.lock.Unlock()

	rec, err := dm.readUser(user)
	if err != nil {
		return err
	}

	bix := -1
	for ix := range rec.Buckets {
		if rec.Buckets[ix].Name == bucket {
			bix = ix
			break
		}
	}
	if bix < 0 {
		rec.Buckets = append(rec.Buckets, BucketRecord{
			Name:     bucket,
			S3Prefix: common.S3PrefixScheme + bucket,
			Files:    []FileRecord{},
		})
		bix = len(rec.Buckets) - 1
	}

	b := &rec.Buckets[bix]
	replaced := false
	for ix := range b.Files {
		if b.Files[ix].Name == file.Name {
			b.Files[ix] = file
			replaced = true
			break
		}
	}
	if !replaced {
		b.Files = append(b.Files, file)
	}

	logf.Log.V(1).Info("DataManager record", "user", user, "bucket", bucket, "file", file.Name, "replaced", replaced)
	return dm.writeUser(rec)
}

// GetAllBucketsDataForUser returns nil when no record exists for user, or the
// record on disk belongs to another user.
func (dm *DataManager) GetAllBucketsDataForUser(user string) ([]BucketRecord, error) {
	if err := checkUser(user); err != nil {
		return nil, err
	}
	dm.lock.Lock()
	defer dm.lock.Unlock()

	if _, err := os.Stat(dm.UserFile(user)); os.IsNotExist(err) {
		return nil, nil
	}
	rec, err := dm.readUser(user)
	if cterror.HasCode(err, cterror.UserMismatch) {
		logf.Log.Info("DataManager user mismatch", "user", user, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.Buckets, nil
}

// GetFilesWithinBucket returns the files recorded for bucket in buckets, nil if absent.
func GetFilesWithinBucket(buckets []BucketRecord, bucket string) []FileRecord {
	for _, b := range buckets {
		if b.Name == bucket {
			return b.Files
		}
	}
	return nil
}

// GetFileWithinBucket returns the record of file in bucket, nil if absent.
func GetFileWithinBucket(buckets []BucketRecord, bucket string, file string) *FileRecord {
	files := GetFilesWithinBucket(buckets, bucket)
	for ix := range files {
		if files[ix].Name == file {
			return &files[ix]
		}
	}
	return nil
}

func (dm *DataManager) DeleteFileFromBucket(user string, bucket string, file string) error {
	return cterror.NewException(cterror.NotImplemented, "DeleteFileFromBucket")
}

func (dm *DataManager) GetVersionsOfObject(user string, bucket string, file string) ([]FileRecord, error) {
	return nil, cterror.NewException(cterror.NotImplemented, "GetVersionsOfObject")
}

func (dm *DataManager) CollectTestRunClientState() error {
	return cterror.NewException(cterror.NotImplemented, "CollectTestRunClientState")
}
