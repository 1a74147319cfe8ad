package datamanager

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cortx-e2e/common"
	"cortx-e2e/common/cterror"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func fileRec(name string, checksum string, seed int64, size int64) FileRecord {
	return FileRecord{
		Name:     name,
		Checksum: checksum,
		Size:     size,
		Seed:     seed,
		Mtime:    time.Date(2022, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

var _ = Describe("DataManager", func() {
	var (
		dir string
		dm  *DataManager
	)

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "datamanager")
		Expect(err).ToNot(HaveOccurred())
		dm, err = New(dir)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("returns nil for users without a record", func() {
		buckets, err := dm.GetAllBucketsDataForUser("nobody")
		Expect(err).ToNot(HaveOccurred())
		Expect(buckets).To(BeNil())
	})

	It("keeps one record per file name with the latest metadata", func() {
		Expect(dm.AddFileToBucket("user1", "test-1", fileRec("a.txt", "abcd", 1, 1024))).To(Succeed())
		Expect(dm.AddFileToBucket("user1", "test-1", fileRec("a.txt", "mabcd", 2, 2048))).To(Succeed())

		buckets, err := dm.GetAllBucketsDataForUser("user1")
		Expect(err).ToNot(HaveOccurred())
		Expect(buckets).To(HaveLen(1))
		Expect(buckets[0].Name).To(Equal("test-1"))
		Expect(buckets[0].S3Prefix).To(Equal("s3://test-1"))

		files := GetFilesWithinBucket(buckets, "test-1")
		Expect(files).To(HaveLen(1))
		Expect(files[0].Name).To(Equal("a.txt"))
		Expect(files[0].Checksum).To(Equal("mabcd"))
		Expect(files[0].Seed).To(Equal(int64(2)))
		Expect(files[0].Size).To(Equal(int64(2048)))
	})

	It("keeps bucket names unique per user", func() {
		for ix := 0; ix < 3; ix++ {
			for _, bucket := range []string{"b1", "b2", "b1"} {
				name := fmt.Sprintf("obj-%d", ix)
				Expect(dm.AddFileToBucket("user2", bucket, fileRec(name, "c", int64(ix), 10))).To(Succeed())
			}
		}
		buckets, err := dm.GetAllBucketsDataForUser("user2")
		Expect(err).ToNot(HaveOccurred())
		names := map[string]bool{}
		for _, b := range buckets {
			Expect(names).ToNot(HaveKey(b.Name))
			names[b.Name] = true
		}
		Expect(names).To(HaveLen(2))
		Expect(GetFilesWithinBucket(buckets, "b1")).To(HaveLen(3))
	})

	It("keeps users apart", func() {
		Expect(dm.AddFileToBucket("alice", "shared", fileRec("x", "1", 1, 1))).To(Succeed())
		Expect(dm.AddFileToBucket("bob", "shared", fileRec("y", "2", 2, 2))).To(Succeed())

		alice, err := dm.GetAllBucketsDataForUser("alice")
		Expect(err).ToNot(HaveOccurred())
		Expect(GetFileWithinBucket(alice, "shared", "x")).ToNot(BeNil())
		Expect(GetFileWithinBucket(alice, "shared", "y")).To(BeNil())
	})

	It("looks up single files", func() {
		Expect(dm.AddFileToBucket("user1", "test-1", fileRec("a.txt", "abcd", 1, 1024))).To(Succeed())
		buckets, err := dm.GetAllBucketsDataForUser("user1")
		Expect(err).ToNot(HaveOccurred())

		f := GetFileWithinBucket(buckets, "test-1", "a.txt")
		Expect(f).ToNot(BeNil())
		Expect(f.Checksum).To(Equal("abcd"))
		Expect(GetFileWithinBucket(buckets, "test-1", "b.txt")).To(BeNil())
		Expect(GetFileWithinBucket(buckets, "test-2", "a.txt")).To(BeNil())
		Expect(GetFilesWithinBucket(buckets, "test-2")).To(BeNil())
	})

	It("records the user email", func() {
		Expect(dm.RegisterUser("user3", "user3@seagate.com")).To(Succeed())
		Expect(dm.AddFileToBucket("user3", "b", fileRec("f", "c", 1, 1))).To(Succeed())
		data, err := ioutil.ReadFile(dm.UserFile("user3"))
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"email": "user3@seagate.com"`))
	})

	It("returns nil for a record belonging to another user", func() {
		Expect(ioutil.WriteFile(dm.UserFile("carol"), []byte(`{"name": "dave", "buckets": []}`), 0644)).To(Succeed())
		buckets, err := dm.GetAllBucketsDataForUser("carol")
		Expect(err).ToNot(HaveOccurred())
		Expect(buckets).To(BeNil())
	})

	It("fails on malformed records", func() {
		Expect(ioutil.WriteFile(dm.UserFile("eve"), []byte(`{"name": `), 0644)).To(Succeed())
		_, err := dm.GetAllBucketsDataForUser("eve")
		Expect(cterror.HasCode(err, cterror.DataManagerError)).To(BeTrue())

		err = dm.AddFileToBucket("eve", "b", fileRec("f", "c", 1, 1))
		Expect(cterror.HasCode(err, cterror.DataManagerError)).To(BeTrue())
	})

	It("rejects empty names", func() {
		err := dm.AddFileToBucket("", "b", fileRec("f", "c", 1, 1))
		Expect(cterror.HasCode(err, cterror.InvalidArgs)).To(BeTrue())
		err = dm.AddFileToBucket("u", "b", fileRec("", "c", 1, 1))
		Expect(cterror.HasCode(err, cterror.InvalidArgs)).To(BeTrue())
	})

	It("rejects user names that leave the metadata directory", func() {
		for _, user := range []string{"../escaped", "a/b", `a\b`, "..", "."} {
			err := dm.AddFileToBucket(user, "b", fileRec("f", "c", 1, 1))
			Expect(cterror.HasCode(err, cterror.InvalidArgs)).To(BeTrue(), "user %q", user)
			Expect(cterror.HasCode(dm.RegisterUser(user, "x@seagate.com"), cterror.InvalidArgs)).To(BeTrue())
			_, err = dm.GetAllBucketsDataForUser(user)
			Expect(cterror.HasCode(err, cterror.InvalidArgs)).To(BeTrue())
		}
		_, err := os.Stat(filepath.Join(filepath.Dir(dir), "escaped"+common.MetadataFileSuffix))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("serialises concurrent writers", func() {
		var wg sync.WaitGroup
		for ix := 0; ix < 20; ix++ {
			wg.Add(1)
			go func(ix int) {
				defer GinkgoRecover()
				defer wg.Done()
				name := fmt.Sprintf("obj-%d", ix)
				Expect(dm.AddFileToBucket("user4", "bucket", fileRec(name, "c", int64(ix), 1))).To(Succeed())
			}(ix)
		}
		wg.Wait()
		buckets, err := dm.GetAllBucketsDataForUser("user4")
		Expect(err).ToNot(HaveOccurred())
		Expect(GetFilesWithinBucket(buckets, "bucket")).To(HaveLen(20))
	})

	It("reports unimplemented operations", func() {
		Expect(cterror.HasCode(dm.DeleteFileFromBucket("u", "b", "f"), cterror.NotImplemented)).To(BeTrue())
		_, err := dm.GetVersionsOfObject("u", "b", "f")
		Expect(cterror.HasCode(err, cterror.NotImplemented)).To(BeTrue())
		Expect(cterror.HasCode(dm.CollectTestRunClientState(), cterror.NotImplemented)).To(BeTrue())
	})
})
