// jira_report writes the test runs of the executions of a jira test plan to a csv file.
package main

import (
	"os"

	"cortx-e2e/tools/jira_report/config"
	"cortx-e2e/tools/jira_report/connectors"
	"cortx-e2e/tools/toolcfg"

	"github.com/google/renameio"
	log "github.com/sirupsen/logrus"
)

type Options struct {
	Config   string `long:"config" default:"jira_report.yaml"`
	TestPlan string `long:"test_plan" description:"overrides the configured test plan"`
	Output   string `long:"output" description:"overrides the configured csv file"`
}

func run(args []string) error {
	var opts Options
	if _, err := toolcfg.ParseArgs(&opts, args); err != nil {
		return err
	}
	v, err := config.LoadConfig(opts.Config)
	if err != nil {
		return err
	}
	cfg, err := config.ParseConfig(v)
	if err != nil {
		return err
	}
	if opts.TestPlan != "" {
		cfg.TestPlan = opts.TestPlan
	}
	if opts.Output != "" {
		cfg.Output = opts.Output
	}
	toolcfg.InitLogger(cfg.Logger, "jira_report")

	client := connectors.NewClient(cfg.Jira.URL, cfg.Jira.User, cfg.Jira.Token)
	rows, err := Collect(client, cfg.TestPlan)
	if err != nil {
		return err
	}

	out, err := renameio.TempFile("", cfg.Output)
	if err != nil {
		return err
	}
	defer out.Cleanup()
	if err := WriteCSV(out, rows); err != nil {
		return err
	}
	if err := out.CloseAtomicallyReplace(); err != nil {
		return err
	}
	log.WithFields(log.Fields{"plan": cfg.TestPlan, "rows": len(rows), "output": cfg.Output}).Info("Report written")
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Error(err)
		os.Exit(toolcfg.ExitCode(err))
	}
}
