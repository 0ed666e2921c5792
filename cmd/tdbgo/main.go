package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/tdbgo/internal/setup"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: tdbgo [-config params.yaml] [-v] <command> <dir> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  load <dir> <file.nq|file.nt[.xz]>...  - Load N-Quads or N-Triples")
	fmt.Fprintln(os.Stderr, "  find <dir> <s> <p> <o> [g]            - Match a pattern; ANY is a wildcard")
	fmt.Fprintln(os.Stderr, "  dump <dir> [out.nq[.xz]]              - Write every quad as N-Quads")
	fmt.Fprintln(os.Stderr, "  stats <dir>                           - Counts, predicates, files and caches")
	fmt.Fprintln(os.Stderr, "  info <dir>                            - Location metadata")
	fmt.Fprintln(os.Stderr, "  prefixes <dir> [[g] <prefix> <iri>]   - List prefixes, optionally setting one")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "YAML store parameters")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(1)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	var params setup.Params
	if *configPath != "" {
		p, err := setup.LoadParams(*configPath)
		if err != nil {
			log.Fatalf("Failed to load params: %v", err)
		}
		params = p
	}

	command, dir, rest := args[0], args[1], args[2:]
	ds, err := setup.Open(dir, setup.WithParams(params), setup.WithLogger(log))
	if err != nil {
		log.Fatalf("Failed to open dataset: %v", err)
	}

	switch command {
	case "load":
		if len(rest) == 0 {
			err = errors.New("usage: tdbgo load <dir> <file>...")
			break
		}
		err = runLoad(ds, rest, log)
	case "find":
		if len(rest) < 3 || len(rest) > 4 {
			err = errors.New("usage: tdbgo find <dir> <s> <p> <o> [g]")
			break
		}
		err = runFind(ds, rest)
	case "dump":
		out := ""
		if len(rest) > 0 {
			out = rest[0]
		}
		err = runDump(ds, out)
	case "stats":
		err = runStats(ds)
	case "info":
		err = runInfo(ds)
	case "prefixes":
		if len(rest) == 1 || len(rest) > 3 {
			err = errors.New("usage: tdbgo prefixes <dir> [[g] <prefix> <iri>]")
			break
		}
		err = runPrefixes(ds, rest)
	default:
		err = fmt.Errorf("unknown command: %s", command)
	}

	if cerr := ds.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatal(err)
	}
}
