package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/1broseidon/winopen/internal/actionlog"
	"github.com/1broseidon/winopen/internal/backup"
)

func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", defaultPathHelp)
	dir := fs.String("dir", "~/Downloads", "Directory to write the export to")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winopen export [--dir DIR] [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Write the icon action and window rules to")
		fmt.Fprintln(os.Stderr, "DIR/winopen-settings-export-YYYYMMDD.json.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	target, err := homedir.Expand(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	out, size, err := backup.Export(res.Config, target, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logAction(res.Config, actionlog.ActionExport,
		zap.String("file", out),
		zap.Int("rules", len(res.Config.Windows)))

	fmt.Printf("exported %d rules to %s (%s)\n", len(res.Config.Windows), out, humanize.Bytes(uint64(size)))
	return 0
}

func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", defaultPathHelp)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winopen import [--path PATH] <file>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Replace the icon action and window rules with an exported file.")
		fmt.Fprintln(os.Stderr, "Older exports that store the icon action as a number are accepted.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	file, err := homedir.Expand(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	next, settings, err := backup.Import(res.Config, file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := next.SaveTo(res.Path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logAction(next, actionlog.ActionImport,
		zap.String("file", file),
		zap.Int("rules", len(settings.Windows)))

	fmt.Printf("imported %d rules (icon action: %s)\n", len(settings.Windows), settings.IconAction)
	reloadDaemon()
	return 0
}
