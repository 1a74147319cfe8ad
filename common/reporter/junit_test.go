package reporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportFile(t *testing.T) {
	assert.Equal(t, "", ReportFile("", "s3_data_integrity"))
	assert.Equal(t, "/reports/cortx.s3_data_integrity-junit.xml", ReportFile("/reports/", "s3_data_integrity"))
}
