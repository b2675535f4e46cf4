package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wtask/relay/internal/config"
	"github.com/wtask/relay/internal/version"
)

var (
	// Config - current configuration of the server
	Config *config.Config

	// BinaryName - name of run application binary
	BinaryName = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
)

func init() {
	out := flag.CommandLine.Output()
	printUsage := func() {
		fmt.Fprintf(out, "Relay text lines between TCP clients\n\n\t%s [options]\nOptions:\n\n", BinaryName)
		flag.PrintDefaults()
		fmt.Fprint(out, "\nEnvironment:\n\n")
		config.Usage(out)
		fmt.Fprint(out, "\n")
	}
	printError := func(msg string) {
		fmt.Fprintf(out, "%s (%s) error:\n\n\t%s\n", BinaryName, version.Version, msg)
	}

	help, showVersion := false, false
	flag.BoolVar(&help, "help", false, "Print usage help")
	flag.BoolVar(&showVersion, "version", false, "Print build info")
	flag.Usage = printUsage
	flag.Parse()

	if help {
		printUsage()
		os.Exit(0)
	}
	if showVersion {
		fmt.Fprintln(out, version.Get())
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	Config = cfg
}
