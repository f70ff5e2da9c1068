// Package config handles application configuration and command-line argument parsing.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/joe/dropsentry/internal/logging"
	"github.com/joe/dropsentry/pkg/entry"
)

// Exported constants.
const (
	CommandChange  = "change"
	CommandCollect = "collect"
	CommandDrop    = "drop"
	CommandPaste   = "paste"
	CommandPrint   = "print"
)

// Exported variables.
var (
	ErrInvalidCollector = errors.New("collector must be '-' or an http(s) URL")
	ErrInvalidLimit     = errors.New("limits must not be negative")
	ErrNoCommand        = errors.New("a command is required: drop, paste, change, print or collect")
)

// Args is the command line.
type Args struct {
	Config      string `arg:"-c,--config" help:"YAML configuration file"`
	LogLevel    string `arg:"--log-level" help:"debug|info|warn|error"`
	LogFormat   string `arg:"--log-format" help:"json|console"`
	LogFile     string `arg:"--log-file" help:"write logs to this file instead of stderr"`
	MetricsAddr string `arg:"--metrics-addr" help:"serve Prometheus metrics on this address"`

	Drop    *DropCmd    `arg:"subcommand:drop" help:"report files and folders dropped onto a page"`
	Paste   *PasteCmd   `arg:"subcommand:paste" help:"report files and folders pasted from the clipboard"`
	Change  *ChangeCmd  `arg:"subcommand:change" help:"report the files chosen in a file input"`
	Print   *PrintCmd   `arg:"subcommand:print" help:"report a page that is about to be printed"`
	Collect *CollectCmd `arg:"subcommand:collect" help:"receive and store reports"`
}

// ReportFlags are shared by the reporting commands.
type ReportFlags struct {
	URL        string         `arg:"--url" help:"URL of the page the event happened on"`
	Title      string         `arg:"--title" help:"title of the page"`
	Collector  string         `arg:"--collector" help:"collector URL, or - for native messaging on stdout"`
	Interval   *time.Duration `arg:"--interval" help:"minimum spacing between reports (0 disables pacing)"`
	QueueSize  *int           `arg:"--queue-size" help:"outbound report queue capacity"`
	PageSize   *int           `arg:"--page-size" help:"entries per directory page"`
	MaxDepth   *int           `arg:"--max-depth" help:"deepest subdirectory level to expand (0 = unlimited)"`
	MaxRecords *int           `arg:"--max-records" help:"stop a folder after this many records (0 = unlimited)"`
	Exclude    []string       `arg:"--exclude,separate" help:"glob of paths to skip, repeatable"`
}

// DropCmd reports dropped paths.
type DropCmd struct {
	ReportFlags

	Paths []string `arg:"positional,required" help:"dropped paths or sftp:// and s3:// locations"`
}

// PasteCmd reports the paths on the clipboard, one per line.
type PasteCmd struct {
	ReportFlags
}

// ChangeCmd reports files picked in a file input.
type ChangeCmd struct {
	ReportFlags

	Paths []string `arg:"positional,required" help:"selected files"`
}

// PrintCmd reports an HTML document about to be printed.
type PrintCmd struct {
	ReportFlags

	Document string `arg:"positional,required" help:"HTML file of the page"`
}

// CollectCmd runs the collector.
type CollectCmd struct {
	Database string `arg:"--db" help:"SQLite database file"`
	Listen   string `arg:"--listen" help:"serve the HTTP intake on this address instead of reading stdin"`
}

// Description returns the program description for go-arg.
func (Args) Description() string {
	return "Walks dropped, pasted and selected files and reports them to a collector"
}

// Version returns the version string for go-arg.
func (Args) Version() string {
	return "dropsentry 1.0.0"
}

// Settings is the resolved configuration: file defaults overridden by flags.
type Settings struct {
	Command string

	Paths    []string
	Document string
	URL      string
	Title    string

	Collector  string
	Interval   time.Duration
	QueueSize  int
	PageSize   int
	MaxDepth   int
	MaxRecords int
	Exclude    []string

	Database string
	Listen   string

	MetricsAddr string
	Log         logging.Config
	S3          entry.S3Config
}

// ParseFlags parses the process command line and resolves settings.
func ParseFlags() (*Settings, error) {
	args := &Args{}

	parser := arg.MustParse(args)
	if parser.Subcommand() == nil {
		parser.Fail(ErrNoCommand.Error())
	}

	return Resolve(args)
}

// Parse parses argv (without the program name) and resolves settings.
func Parse(argv []string) (*Settings, error) {
	args := &Args{}

	parser, err := arg.NewParser(arg.Config{Program: "dropsentry"}, args)
	if err != nil {
		return nil, err
	}

	if err := parser.Parse(argv); err != nil {
		return nil, err
	}

	return Resolve(args)
}

// Resolve loads the configuration file and applies the flags on top of it.
func Resolve(args *Args) (*Settings, error) {
	path := args.Config
	if path == "" {
		path = DefaultPath()
	}

	file, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	settings := fromFile(file)

	overrideString(&settings.Log.Level, args.LogLevel)
	overrideString(&settings.Log.Format, args.LogFormat)
	overrideString(&settings.Log.OutputPath, args.LogFile)
	overrideString(&settings.MetricsAddr, args.MetricsAddr)

	switch {
	case args.Drop != nil:
		settings.Command = CommandDrop
		settings.Paths = args.Drop.Paths
		applyReportFlags(settings, &args.Drop.ReportFlags)
	case args.Paste != nil:
		settings.Command = CommandPaste
		applyReportFlags(settings, &args.Paste.ReportFlags)
	case args.Change != nil:
		settings.Command = CommandChange
		settings.Paths = args.Change.Paths
		applyReportFlags(settings, &args.Change.ReportFlags)
	case args.Print != nil:
		settings.Command = CommandPrint
		settings.Document = args.Print.Document
		applyReportFlags(settings, &args.Print.ReportFlags)
	case args.Collect != nil:
		settings.Command = CommandCollect
		overrideString(&settings.Database, args.Collect.Database)
		overrideString(&settings.Listen, args.Collect.Listen)
	default:
		return nil, ErrNoCommand
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Validate checks the resolved settings.
func (s *Settings) Validate() error {
	if s.MaxDepth < 0 || s.MaxRecords < 0 || s.QueueSize < 0 || s.PageSize < 0 {
		return ErrInvalidLimit
	}

	if s.Collector == NativeCollector {
		return nil
	}

	u, err := url.Parse(s.Collector)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidCollector, s.Collector)
	}

	return nil
}

func fromFile(file *File) *Settings {
	return &Settings{
		Collector:   file.Collector,
		Interval:    file.Interval,
		QueueSize:   file.QueueSize,
		PageSize:    file.PageSize,
		MaxDepth:    file.MaxDepth,
		MaxRecords:  file.MaxRecords,
		Exclude:     append([]string(nil), file.Exclude...),
		Database:    file.Database,
		Listen:      file.Listen,
		MetricsAddr: file.MetricsAddr,
		Log: logging.Config{
			Level:      file.Log.Level,
			Format:     file.Log.Format,
			OutputPath: file.Log.Output,
		},
		S3: entry.S3Config{
			Endpoint:  file.S3.Endpoint,
			Region:    file.S3.Region,
			AccessKey: file.S3.AccessKey,
			SecretKey: file.S3.SecretKey,
		},
	}
}

func applyReportFlags(s *Settings, flags *ReportFlags) {
	s.URL = flags.URL
	s.Title = flags.Title

	overrideString(&s.Collector, flags.Collector)

	if flags.Interval != nil {
		s.Interval = *flags.Interval
	}

	overrideInt(&s.QueueSize, flags.QueueSize)
	overrideInt(&s.PageSize, flags.PageSize)
	overrideInt(&s.MaxDepth, flags.MaxDepth)
	overrideInt(&s.MaxRecords, flags.MaxRecords)

	s.Exclude = append(s.Exclude, flags.Exclude...)
}

func overrideInt(dst *int, value *int) {
	if value != nil {
		*dst = *value
	}
}

func overrideString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
