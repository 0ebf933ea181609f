package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/client"
	"github.com/aleksaelezovic/rdfixture/pkg/fixture"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/results"
	"github.com/aleksaelezovic/rdfixture/pkg/server"
)

const usage = `Usage: rdfixture <command> [args]
Commands:
  graphs <source> [test/path]            - Show the graphs and quad count a test sees
  dump <source> [test/path] [format]     - Print the data a test sees (default: nq)
  query <source> <sparql> [format]       - Run a query (default: tsv for results, nq for graphs)
  graph-iri <test/path> [start end]      - Print the graph name of a test (default window: 1 -1)
  serve <source> [addr] [test/path]      - Start a read-only SPARQL endpoint (default: localhost:8080)
  snapshot <source> <dir> [test/path]    - Save the data a test sees to a BadgerDB directory

A source is a data file, manifest.yaml#fixture or a snapshot directory.`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "graphs":
		requireArgs(args, 1)
		runGraphs(args[0], arg(args, 1))
	case "dump":
		requireArgs(args, 1)
		runDump(args[0], arg(args, 1), arg(args, 2))
	case "query":
		requireArgs(args, 2)
		runQuery(args[0], args[1], arg(args, 2))
	case "graph-iri":
		requireArgs(args, 1)
		runGraphIRI(args[0], args[1:])
	case "serve":
		requireArgs(args, 1)
		addr := arg(args, 1)
		if addr == "" {
			addr = "localhost:8080"
		}
		runServer(args[0], addr, arg(args, 2))
	case "snapshot":
		requireArgs(args, 2)
		runSnapshot(args[0], args[1], arg(args, 2))
	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func requireArgs(args []string, n int) {
	if len(args) < n {
		fmt.Println(usage)
		os.Exit(1)
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// openLoader reads a fixture from a manifest entry or a single data file
func openLoader(source string) *fixture.Loader {
	if manifest, name, ok := strings.Cut(source, "#"); ok {
		specs, err := fixture.LoadSpecs(manifest)
		if err != nil {
			log.Fatalf("Failed to read manifest: %v", err)
		}
		spec, found := specs[name]
		if !found {
			log.Fatalf("Fixture %q not found in %s", name, manifest)
		}
		return fixture.NewLoader(spec)
	}

	ext := filepath.Ext(source)
	format, err := rdf.ParseFormat(ext)
	if err != nil {
		log.Fatalf("Failed to detect format of %s: %v", source, err)
	}
	return fixture.NewLoader(fixture.Spec{
		Base:   strings.TrimSuffix(source, ext),
		Format: format,
	})
}

// loadData loads a fixture as the test at path would see it. An empty
// path loads every graph. A snapshot directory is opened as is.
func loadData(source, path string) (*fixture.Fixture, *fixture.Data) {
	var f *fixture.Fixture
	var err error
	if info, statErr := os.Stat(source); statErr == nil && info.IsDir() {
		if path != "" {
			log.Fatalf("A snapshot cannot be narrowed to a test path")
		}
		f, err = fixture.OpenSnapshot(source)
	} else {
		var testPath fixture.TestPath
		if path != "" {
			testPath = strings.Split(path, "/")
		}
		f, err = openLoader(source).Load(context.Background(), testPath)
	}
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}
	data, err := f.Data()
	if err != nil {
		_ = f.Close()
		log.Fatalf("Failed to load fixture: %v", err)
	}
	return f, data
}

func runGraphs(source, path string) {
	f, data := loadData(source, path)
	defer f.Close()

	count, err := data.Store.Count()
	if err != nil {
		log.Fatalf("Failed to count quads: %v", err)
	}
	graphs, err := data.Store.NamedGraphs()
	if err != nil {
		log.Fatalf("Failed to list graphs: %v", err)
	}

	fmt.Printf("Total quads: %d\n", count)
	fmt.Printf("Named graphs: %d\n", len(graphs))
	for _, g := range graphs {
		fmt.Printf("  %s\n", formatTerm(g))
	}
}

func runDump(source, path, formatName string) {
	format := rdf.FormatNQuads
	if formatName != "" {
		var err error
		if format, err = rdf.ParseFormat(formatName); err != nil {
			log.Fatalf("Failed to parse format: %v", err)
		}
	}

	f, data := loadData(source, path)
	defer f.Close()

	dataset, err := data.Dataset()
	if err != nil {
		log.Fatalf("Failed to read dataset: %v", err)
	}
	if err := dataset.Serialize(os.Stdout, format); err != nil {
		log.Fatalf("Failed to serialize dataset: %v", err)
	}
}

func runQuery(source, query, formatName string) {
	f, data := loadData(source, "")
	defer f.Close()

	ctx := context.Background()
	stream := data.StreamClient

	switch queryForm(query) {
	case "CONSTRUCT", "DESCRIBE":
		quads, err := stream.Construct(ctx, query)
		if err != nil {
			log.Fatalf("Failed to execute query: %v", err)
		}
		defer quads.Close()

		dataset := rdf.NewDataset()
		for quads.Next() {
			dataset.Add(quads.Quad())
		}
		if err := quads.Err(); err != nil {
			log.Fatalf("Failed to execute query: %v", err)
		}
		if err := dataset.Serialize(os.Stdout, rdf.FormatNQuads); err != nil {
			log.Fatalf("Failed to serialize result: %v", err)
		}

	case "ASK":
		value, err := stream.Ask(ctx, query)
		if err != nil {
			log.Fatalf("Failed to execute query: %v", err)
		}
		if err := results.WriteBoolean(os.Stdout, value, resultFormat(formatName)); err != nil {
			log.Fatalf("Failed to write result: %v", err)
		}

	default:
		rows, err := stream.Select(ctx, query)
		if err != nil {
			log.Fatalf("Failed to execute query: %v", err)
		}
		defer rows.Close()

		var solutions []client.Bindings
		for rows.Next() {
			solutions = append(solutions, rows.Binding())
		}
		if err := rows.Err(); err != nil {
			log.Fatalf("Failed to execute query: %v", err)
		}
		if err := results.Write(os.Stdout, rows.Variables(), solutions, resultFormat(formatName)); err != nil {
			log.Fatalf("Failed to write results: %v", err)
		}
	}
}

// queryForm finds the first query form keyword
func queryForm(query string) string {
	for _, word := range strings.Fields(strings.ToUpper(query)) {
		switch word {
		case "SELECT", "CONSTRUCT", "DESCRIBE", "ASK":
			return word
		}
	}
	return "SELECT"
}

func resultFormat(name string) results.Format {
	if name == "" {
		return results.FormatTSV
	}
	f, err := results.ParseFormat(name)
	if err != nil {
		log.Fatalf("Failed to parse format: %v", err)
	}
	return f
}

func runGraphIRI(path string, bounds []string) {
	window := fixture.DefaultWindow
	if len(bounds) == 2 {
		window.Start = parseBound(bounds[0])
		window.End = parseBound(bounds[1])
	} else if len(bounds) != 0 {
		fmt.Println("Usage: rdfixture graph-iri <test/path> [start end]")
		os.Exit(1)
	}

	iri, err := fixture.GraphIRI(strings.Split(path, "/"), window)
	if err != nil {
		log.Fatalf("Failed to name graph: %v", err)
	}
	fmt.Println(iri.IRI)
}

// parseBound reads a window bound, "end" meaning past the last segment
func parseBound(s string) int {
	if s == "end" {
		return fixture.ToEnd
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("Invalid window bound %q: %v", s, err)
	}
	return n
}

func runServer(source, addr, path string) {
	f, data := loadData(source, path)
	defer f.Close()

	srv := server.NewServer(data, addr, nil)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func runSnapshot(source, dir, path string) {
	f, data := loadData(source, path)
	defer f.Close()

	n, err := data.Snapshot(dir)
	if err != nil {
		log.Fatalf("Failed to write snapshot: %v", err)
	}
	fmt.Printf("Wrote %d quads to %s\n", n, dir)
}

// formatTerm shortens IRIs to their local name
func formatTerm(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		iri := t.IRI
		if idx := strings.LastIndexAny(iri, "/#"); idx != -1 && idx < len(iri)-1 {
			return fmt.Sprintf("%s (<%s>)", iri[idx+1:], iri)
		}
		return "<" + iri + ">"
	default:
		return term.String()
	}
}
