package reporter

import (
	"path"

	"cortx-e2e/common/e2e_config"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/reporters"
)

const testGroupPrefix = "cortx."

// ReportFile returns the junit report path for the suite name, empty when reports are disabled.
func ReportFile(reportsDir string, name string) string {
	if reportsDir == "" {
		return ""
	}
	return path.Join(reportsDir, testGroupPrefix+name+"-junit.xml")
}

func GetReporters(name string) []Reporter {
	xmlFileSpec := ReportFile(e2e_config.GetConfig().ReportsDir, name)
	if xmlFileSpec == "" {
		return []Reporter{}
	}
	junitReporter := reporters.NewJUnitReporter(xmlFileSpec)
	return []Reporter{junitReporter}
}
