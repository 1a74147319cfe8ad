package main

import (
	"encoding/csv"
	"io"

	"cortx-e2e/tools/jira_report/connectors"

	log "github.com/sirupsen/logrus"
)

var header = []string{"Test Execution", "Execution Summary", "Test", "Test Summary", "Status", "Assignee"}

// Row is one test run of the report.
type Row struct {
	Execution        string
	ExecutionSummary string
	Test             string
	TestSummary      string
	Status           string
	Assignee         string
}

func (r Row) record() []string {
	return []string{r.Execution, r.ExecutionSummary, r.Test, r.TestSummary, r.Status, r.Assignee}
}

type source interface {
	SearchExecutions(testPlan string) ([]connectors.JiraTask, error)
	GetExecutionTests(execKey string) ([]connectors.TestRun, error)
	GetIssue(key string) (*connectors.JiraTask, error)
}

// Collect builds the rows of the test executions of testPlan. A test whose issue cannot be
// read is reported without summary.
func Collect(src source, testPlan string) ([]Row, error) {
	execs, err := src.SearchExecutions(testPlan)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for ix := range execs {
		exec := &execs[ix]
		runs, err := src.GetExecutionTests(exec.Key)
		if err != nil {
			return nil, err
		}
		for _, run := range runs {
			row := Row{
				Execution:        exec.Key,
				ExecutionSummary: exec.Summary(),
				Test:             run.Key,
				Status:           run.Status,
				Assignee:         exec.AssigneeName(),
			}
			if issue, err := src.GetIssue(run.Key); err != nil {
				log.WithFields(log.Fields{"test": run.Key, "error": err}).Warn("Test issue not readable")
			} else {
				row.TestSummary = issue.Summary()
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
