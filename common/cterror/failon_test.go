package cterror

import (
	"errors"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/gomega"
)

var _ = Describe("FailOn", func() {
	var (
		calls    int
		gotErr   error
		gotCtx   FailContext
		resolved FailContext
	)

	BeforeEach(func() {
		calls = 0
		gotErr = nil
		gotCtx = FailContext{}
		resolved = FailContext{TestName: "test_disk_fail", Node: "ssc-vm-1", Namespace: "cortx"}
	})

	routine := func(err error, fc FailContext) error {
		calls++
		gotErr = err
		gotCtx = fc
		return nil
	}

	It("passes successful steps through", func() {
		f := FailOn{Routine: routine}
		gomega.Expect(f.Call(func() error { return nil })).To(gomega.Succeed())
		gomega.Expect(calls).To(gomega.BeZero())
	})

	It("invokes the routine once with the resolved context", func() {
		f := FailOn{
			Routine: routine,
			Resolve: func() (FailContext, error) { return resolved, nil },
		}
		stepErr := NewException(DiskStateError, "drive-state failed")
		gomega.Expect(f.Call(func() error { return stepErr })).To(gomega.Succeed())
		gomega.Expect(calls).To(gomega.Equal(1))
		gomega.Expect(gotErr).To(gomega.Equal(stepErr))
		gomega.Expect(gotCtx).To(gomega.Equal(resolved))
	})

	It("lets a routine returning nil turn a failed step into a pass", func() {
		f := FailOn{Routine: routine}
		stepErr := NewException(DataIntegrityError, "checksum mismatch")
		err := f.Call(func() error { return stepErr })
		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(calls).To(gomega.Equal(1))
		gomega.Expect(gotErr).To(gomega.Equal(stepErr))
	})

	It("keeps the step failing when the routine hands the error back", func() {
		f := FailOn{Routine: func(err error, fc FailContext) error {
			calls++
			return err
		}}
		stepErr := NewException(DataIntegrityError, "checksum mismatch")
		err := f.Call(func() error { return stepErr })
		gomega.Expect(calls).To(gomega.Equal(1))
		gomega.Expect(HasCode(err, FailOnError)).To(gomega.BeTrue())
		gomega.Expect(HasCode(err, DataIntegrityError)).To(gomega.BeTrue())
	})

	It("wraps a failing routine", func() {
		f := FailOn{Routine: func(err error, fc FailContext) error {
			calls++
			return errors.New("collect logs failed")
		}}
		err := f.Call(func() error { return NewException(S3Error, "put") })
		gomega.Expect(calls).To(gomega.Equal(1))
		gomega.Expect(HasCode(err, FailOnError)).To(gomega.BeTrue())
		gomega.Expect(err.Error()).To(gomega.ContainSubstring("collect logs failed"))
	})

	It("wraps a failing resolve without calling the routine", func() {
		f := FailOn{
			Routine: routine,
			Resolve: func() (FailContext, error) { return FailContext{}, errors.New("no attribute node") },
		}
		err := f.Call(func() error { return NewException(S3Error, "put") })
		gomega.Expect(calls).To(gomega.BeZero())
		gomega.Expect(HasCode(err, FailOnError)).To(gomega.BeTrue())
		gomega.Expect(err.Error()).To(gomega.ContainSubstring("no attribute node"))
	})

	It("wraps a panicking routine", func() {
		f := FailOn{Routine: func(err error, fc FailContext) error {
			calls++
			panic("routine bug")
		}}
		err := f.Call(func() error { return NewException(S3Error, "put") })
		gomega.Expect(calls).To(gomega.Equal(1))
		gomega.Expect(HasCode(err, FailOnError)).To(gomega.BeTrue())
		gomega.Expect(err.Error()).To(gomega.ContainSubstring("routine bug"))
	})

	It("does not route unrelated errors but still wraps them", func() {
		f := FailOn{Routine: routine}
		err := f.Call(func() error { return errors.New("unrelated") })
		gomega.Expect(calls).To(gomega.BeZero())
		gomega.Expect(HasCode(err, FailOnError)).To(gomega.BeTrue())
		gomega.Expect(errors.Unwrap(err)).To(gomega.MatchError("unrelated"))
	})

	It("honours a custom matcher", func() {
		sentinel := errors.New("timeout")
		f := FailOn{
			Routine: routine,
			Match:   func(err error) bool { return errors.Is(err, sentinel) },
		}
		gomega.Expect(f.Call(func() error { return sentinel })).To(gomega.Succeed())
		gomega.Expect(calls).To(gomega.Equal(1))

		err := f.Call(func() error { return NewException(S3Error, "put") })
		gomega.Expect(calls).To(gomega.Equal(1))
		gomega.Expect(HasCode(err, FailOnError)).To(gomega.BeTrue())
	})

	It("wraps panics of the step", func() {
		f := FailOn{Routine: routine}
		err := f.Call(func() error { panic("step bug") })
		gomega.Expect(calls).To(gomega.BeZero())
		gomega.Expect(HasCode(err, FailOnError)).To(gomega.BeTrue())
	})
})
