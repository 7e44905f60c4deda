package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/hazyhaar/wardstats/pkg/importer"
	"github.com/hazyhaar/wardstats/pkg/store"
	"github.com/hazyhaar/wardstats/pkg/topic"
)

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	topicID := fs.String("topic", "", "topic ID to import (e.g. religion)")
	all := fs.Bool("all", false, "import every topic")
	location := fs.String("location", "", "override and remember the dataset location (with -topic)")
	fs.Parse(args)

	cfg, logger := mustLoad(*cfgPath)

	reg := topic.NewRegistry(cfg.TopicsDir)
	if err := reg.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "load topics: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	if err := seedSources(ctx, st, reg); err != nil {
		fmt.Fprintf(os.Stderr, "seed sources: %v\n", err)
		os.Exit(1)
	}

	if !*all && *topicID == "" {
		printSources(ctx, st)
		return
	}

	var topics []*topic.Topic
	if *all {
		if *location != "" {
			fmt.Fprintln(os.Stderr, "-location requires -topic")
			os.Exit(1)
		}
		topics = reg.All()
	} else {
		t, ok := reg.Get(*topicID)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown topic: %s\n", *topicID)
			os.Exit(1)
		}
		if *location != "" {
			if err := st.SetSourceLocation(ctx, t.ID(), *location); err != nil {
				fmt.Fprintf(os.Stderr, "set location: %v\n", err)
				os.Exit(1)
			}
		}
		topics = []*topic.Topic{t}
	}

	failed := 0
	for _, t := range topics {
		loc, err := st.SourceLocation(ctx, t.ID())
		if err != nil {
			loc = t.SourceLocation()
		}
		start := time.Now()
		ds, err := importer.Ingest(ctx, st, t, loc)
		if err != nil {
			logger.Error("import failed", "topic", t.ID(), "error", err)
			failed++
			continue
		}
		fmt.Printf("%-20s %6d rows  (%s)\n", t.ID(), len(ds.Rows), time.Since(start).Round(time.Millisecond))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func printSources(ctx context.Context, st *store.Store) {
	sources, err := st.ListSources(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list sources: %v\n", err)
		os.Exit(1)
	}
	imported, err := st.Topics(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list imported topics: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Topics:")
	fmt.Println()
	for _, src := range sources {
		status := ""
		if src.LastStatus != nil {
			status = fmt.Sprintf("  [%d]", *src.LastStatus)
		}
		state := "empty"
		if slices.Contains(imported, src.Topic) {
			state = "imported"
		}
		fmt.Printf("  %-20s  %-5s  %-8s  %s%s\n", src.Topic, src.Adapter, state, src.Location, status)
	}
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wardstats import -topic <id> [-location <path|url>]")
	fmt.Println("  wardstats import -all")
}
