package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"

	"github.com/aleksaelezovic/tdbgo/internal/store"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
)

func openInput(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(path, ".xz") {
		return f, f.Close, nil
	}
	r, err := xz.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, f.Close, nil
}

func runLoad(ds *store.DatasetGraph, files []string, log *logrus.Logger) error {
	for _, path := range files {
		start := time.Now()
		in, closeIn, err := openInput(path)
		if err != nil {
			return err
		}

		var read, added int64
		reader := rdf.NewNQuadsReader(in)
		for {
			q, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				closeIn()
				return fmt.Errorf("%s: %w", path, err)
			}
			read++
			ok, err := ds.AddQuad(q)
			if err != nil {
				closeIn()
				return fmt.Errorf("%s: %w", path, err)
			}
			if ok {
				added++
			}
			if read%100000 == 0 {
				log.WithField("file", path).Debugf("%s statements read", humanize.Comma(read))
			}
		}
		closeIn()
		if err := ds.Sync(); err != nil {
			return err
		}

		elapsed := time.Since(start)
		fmt.Printf("%s %s: %s statements, %s new, %s\n",
			color.GreenString("loaded"), path,
			humanize.Comma(read), humanize.Comma(added), elapsed.Round(time.Millisecond))
	}
	return nil
}

func parsePatternTerm(s string) (rdf.Term, error) {
	switch strings.ToUpper(s) {
	case "ANY", "*":
		return nil, nil
	case "DEFAULT":
		return rdf.NewDefaultGraph(), nil
	}
	return rdf.ParseTerm(s)
}

func runFind(ds *store.DatasetGraph, args []string) error {
	terms := make([]rdf.Term, len(args))
	for i, a := range args {
		t, err := parsePatternTerm(a)
		if err != nil {
			return fmt.Errorf("term %q: %w", a, err)
		}
		terms[i] = t
	}

	w := rdf.NewNQuadsWriter(os.Stdout)
	var n int64
	if len(terms) == 3 {
		for t, err := range ds.FindTriples(terms[0], terms[1], terms[2]) {
			if err != nil {
				return err
			}
			if err := w.Write(rdf.NewQuad(t.Subject, t.Predicate, t.Object, nil)); err != nil {
				return err
			}
			n++
		}
	} else {
		for q, err := range ds.FindQuads(terms[3], terms[0], terms[1], terms[2]) {
			if err != nil {
				return err
			}
			if err := w.Write(q); err != nil {
				return err
			}
			n++
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, color.CyanString("%s matches", humanize.Comma(n)))
	return nil
}

func runDump(ds *store.DatasetGraph, out string) (err error) {
	var dst io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		dst = f
		if strings.HasSuffix(out, ".xz") {
			xw, err := xz.NewWriter(f)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := xw.Close(); err == nil {
					err = cerr
				}
			}()
			dst = xw
		}
	}

	w := rdf.NewNQuadsWriter(dst)
	for q, err := range ds.FindQuads(nil, nil, nil, nil) {
		if err != nil {
			return err
		}
		if err := w.Write(q); err != nil {
			return err
		}
	}
	return w.Flush()
}

func newTable(out io.Writer, alignment ...tw.Align) *tablewriter.Table {
	return tablewriter.NewTable(out,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
}

func runStats(ds *store.DatasetGraph) error {
	triples, err := ds.CountTriples()
	if err != nil {
		return err
	}
	quads, err := ds.CountQuads()
	if err != nil {
		return err
	}
	var graphs int64
	for _, err := range ds.ListGraphs() {
		if err != nil {
			return err
		}
		graphs++
	}

	fmt.Printf("Location: %s\n", color.CyanString(ds.Location()))
	fmt.Printf("Triples:  %s\n", color.GreenString(humanize.Comma(triples)))
	fmt.Printf("Quads:    %s in %s named graphs\n\n", color.GreenString(humanize.Comma(quads)), humanize.Comma(graphs))

	preds, err := ds.PredicateStats()
	if err != nil {
		return err
	}
	table := newTable(os.Stdout, tw.AlignLeft, tw.AlignRight)
	table.Header([]string{"Predicate", "Count"})
	for _, pc := range preds {
		table.Append([]string{pc.Predicate.String(), humanize.Comma(pc.Count)})
	}
	table.Render()
	fmt.Println()

	if !ds.IsMem() {
		files, err := ds.Files()
		if err != nil {
			return err
		}
		table = newTable(os.Stdout, tw.AlignLeft, tw.AlignRight)
		table.Header([]string{"File", "Size"})
		for _, f := range files {
			table.Append([]string{f.Name, humanize.Bytes(uint64(f.Size))})
		}
		table.Render()
		fmt.Println()
	}

	caches := ds.CacheStats()
	names := make([]string, 0, len(caches))
	for name := range caches {
		names = append(names, name)
	}
	sort.Strings(names)
	table = newTable(os.Stdout, tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight)
	table.Header([]string{"Cache", "Entries", "Hits", "Misses", "Ejects"})
	for _, name := range names {
		s := caches[name]
		table.Append([]string{name,
			humanize.Comma(int64(s.Entries)),
			humanize.Comma(int64(s.Hits)),
			humanize.Comma(int64(s.Misses)),
			humanize.Comma(int64(s.Ejects)),
		})
	}
	table.Render()
	return nil
}

func runInfo(ds *store.DatasetGraph) error {
	params := ds.Params()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := newTable(os.Stdout, tw.AlignLeft, tw.AlignLeft)
	table.Header([]string{"Key", "Value"})
	for _, k := range keys {
		table.Append([]string{k, params[k]})
	}
	return table.Render()
}

// runPrefixes sets one mapping of graph when prefix and iri are given, then
// lists the mappings of every graph.
func runPrefixes(ds *store.DatasetGraph, args []string) error {
	pt := ds.Prefixes()
	if len(args) > 0 {
		graph, prefix, iri := "", args[0], args[1]
		if len(args) == 3 {
			graph, prefix, iri = args[0], args[1], args[2]
		}
		if err := pt.Set(graph, prefix, iri); err != nil {
			return err
		}
	}

	graphs, err := pt.Graphs()
	if err != nil {
		return err
	}
	table := newTable(os.Stdout, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft)
	table.Header([]string{"Graph", "Prefix", "IRI"})
	for _, g := range graphs {
		m, err := pt.Mapping(g)
		if err != nil {
			return err
		}
		prefixes := make([]string, 0, len(m))
		for p := range m {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)
		name := g
		if name == "" {
			name = "DEFAULT"
		}
		for _, p := range prefixes {
			table.Append([]string{name, p + ":", m[p]})
		}
	}
	return table.Render()
}
