// Command snapshot-util creates, releases and lists tablet snapshots against
// a set of storage roots.
//
// Usage:
//
//	snapshot-util -data-dir ./olap_data -list
//	snapshot-util -data-dir ./olap_data -create -tablet 10 -schema-hash 123 -version 5
//	snapshot-util -data-dir ./olap_data -create -tablet 10 -schema-hash 123 -missing 4,5
//	snapshot-util -data-dir ./olap_data -release /abs/path/to/snapshot/20260115093000.0
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/INLOpen/nexusolap/config"
	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/engine"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	dataDir := flag.String("data-dir", "", "Storage root to operate on (overrides the config's roots)")

	create := flag.Bool("create", false, "Create a snapshot")
	tabletID := flag.Int64("tablet", 0, "Tablet id (for -create)")
	schemaHash := flag.Int64("schema-hash", 0, "Schema hash (for -create)")
	version := flag.Int64("version", -1, "Pin the snapshot to this version; -1 uses the tablet's max version")
	versionHash := flag.Uint64("version-hash", 0, "Expected version hash of the pinned version")
	missing := flag.String("missing", "", "Comma-separated missing versions for an incremental snapshot")

	release := flag.String("release", "", "Release the snapshot at this path")
	list := flag.Bool("list", false, "List snapshots under every configured root")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	if *dataDir != "" {
		cfg.Storage.Roots = []string{*dataDir}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	eng, err := engine.NewStorageEngine(cfg, logger)
	if err != nil {
		fatalf("Error building engine: %v", err)
	}
	if err := eng.Start(); err != nil {
		fatalf("Error starting engine: %v", err)
	}
	defer eng.Close()

	ctx := context.Background()
	switch {
	case *create:
		req := &core.SnapshotRequest{
			TabletID:    core.TabletID(*tabletID),
			SchemaHash:  core.SchemaHash(*schemaHash),
			VersionHash: core.VersionHash(*versionHash),
		}
		if *version >= 0 {
			req.Version = version
		}
		if *missing != "" {
			req.MissingVersions, err = parseVersionList(*missing)
			if err != nil {
				fatalf("Error parsing -missing: %v", err)
			}
		}
		path, err := eng.MakeSnapshot(ctx, req)
		if err != nil {
			fatalf("Error creating snapshot: %v", err)
		}
		fmt.Println(path)

	case *release != "":
		if err := eng.ReleaseSnapshot(ctx, *release); err != nil {
			fatalf("Error releasing snapshot: %v", err)
		}
		fmt.Printf("Released %s\n", *release)

	case *list:
		infos, err := eng.ListSnapshots()
		if err != nil {
			fatalf("Error listing snapshots: %v", err)
		}
		if len(infos) == 0 {
			fmt.Println("No snapshots found.")
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED AT\tSIZE (MB)\tPATH")
		fmt.Fprintln(w, "--\t----------\t---------\t----")
		for _, s := range infos {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n",
				s.ID,
				s.CreatedAt.Format("2006-01-02 15:04:05 MST"),
				float64(s.Size)/(1024*1024),
				s.Path,
			)
		}
		w.Flush()

	default:
		fmt.Fprintln(os.Stderr, "Error: one of -create, -release or -list is required.")
		flag.Usage()
		os.Exit(1)
	}
}

func parseVersionList(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	versions := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q", p)
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
