// Package toolcfg holds the logging and flag parsing shared by the command line tools.
package toolcfg

import (
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
)

// Logger config
type Logger struct {
	ReportCaller bool
	Encoding     string
	Level        string
	Output       string
}

// InitLogger configures logrus, a file output is written to <name>.log.
func InitLogger(cfg Logger, name string) {
	log.SetReportCaller(cfg.ReportCaller)
	switch cfg.Level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	if cfg.Encoding == "json" {
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	}

	if cfg.Output == "file" {
		file, err := os.OpenFile(name+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			log.SetOutput(file)
		} else {
			log.Error("Failed to log to file, using default stderr")
		}
	} else {
		log.SetOutput(os.Stdout)
	}
}

// ParseArgs fills opts from args, returning the positional arguments left over.
func ParseArgs(opts interface{}, args []string) ([]string, error) {
	parser := flags.NewParser(opts, flags.Default)
	return parser.ParseArgs(args)
}

// ExitCode is 0 for a help request, 1 for every other error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
		return 0
	}
	return 1
}
