package cterror

import (
	. "github.com/onsi/ginkgo"
	"github.com/onsi/gomega"
)

var _ = Describe("Registry", func() {

	It("validates the default catalog", func() {
		gomega.Expect(Validate()).To(gomega.Succeed())
		for _, e := range Default.Errors() {
			gomega.Expect(ValidateCode(e.Code)).To(gomega.Succeed())
		}
	})

	It("looks up registered errors by code", func() {
		e, ok := GetError(CommandFailed.Code)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(e).To(gomega.Equal(CommandFailed))
	})

	It("looks up registered errors by description substring", func() {
		e, ok := GetErrorByDescription("checksum mismatch")
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(e).To(gomega.Equal(DataIntegrityError))
	})

	It("never returns unregistered entries", func() {
		_, ok := GetError(999999)
		gomega.Expect(ok).To(gomega.BeFalse())
		_, ok = GetErrorByDescription("no such description anywhere")
		gomega.Expect(ok).To(gomega.BeFalse())
		_, ok = GetErrorByDescription("")
		gomega.Expect(ok).To(gomega.BeFalse())
		gomega.Expect(ValidateCode(999999)).ToNot(gomega.Succeed())
	})

	It("rejects duplicate codes", func() {
		r := NewRegistry(Error{1000, "x"}, Error{1000, "y"})
		err := r.Validate()
		gomega.Expect(err).To(gomega.HaveOccurred())
		gomega.Expect(HasCode(err, InvalidArgs)).To(gomega.BeTrue())
		gomega.Expect(err.Error()).To(gomega.ContainSubstring("duplicate error code 1000"))
		gomega.Expect(r.ValidateCode(1000)).ToNot(gomega.Succeed())
	})

	It("rejects empty descriptions", func() {
		r := NewRegistry(Error{1, "one"}, Error{2, " "})
		gomega.Expect(r.Validate()).ToNot(gomega.Succeed())
		gomega.Expect(r.ValidateCode(1)).To(gomega.Succeed())
		gomega.Expect(r.ValidateCode(2)).ToNot(gomega.Succeed())
	})

	It("returns the first registration of a duplicated code", func() {
		r := NewRegistry(Error{7, "first"}, Error{7, "second"})
		e, ok := r.GetError(7)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(e.Desc).To(gomega.Equal("first"))
		gomega.Expect(r.Errors()).To(gomega.HaveLen(2))
	})
})

var _ = Describe("Exception", func() {

	It("formats code, description, message and cause", func() {
		ex := WrapException(errTest("boom"), CommandFailed, "running %s", "ls")
		gomega.Expect(ex.Error()).To(gomega.Equal("CTException: EC(2000) Remote command failed: running ls: boom"))
		gomega.Expect(ex.Code()).To(gomega.Equal(2000))
		gomega.Expect(ex.Unwrap()).To(gomega.MatchError("boom"))
	})

	It("finds codes anywhere in the chain", func() {
		inner := NewException(ParseError, "bad json")
		outer := WrapException(inner, FailOnError, "FailOn failed")
		gomega.Expect(HasCode(outer, ParseError)).To(gomega.BeTrue())
		gomega.Expect(HasCode(outer, FailOnError)).To(gomega.BeTrue())
		gomega.Expect(HasCode(outer, S3Error)).To(gomega.BeFalse())
		gomega.Expect(HasCode(errTest("plain"), S3Error)).To(gomega.BeFalse())
	})
})

type errTest string

func (e errTest) Error() string { return string(e) }
