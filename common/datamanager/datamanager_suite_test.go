package datamanager

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestDataManager(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DataManager Suite")
}
