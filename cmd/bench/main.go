package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/aretw0/notebook"
)

func main() {
	count := flag.Int("count", 500, "Number of notes to commit")
	keep := flag.Bool("keep", false, "Keep the benchmark notebooks after running")
	verbose := flag.Bool("verbose", false, "Log every save")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}

	benchDir, err := os.MkdirTemp("", "notebook_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	ctx := context.Background()
	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes):\n", *count)
	for _, snapshot := range []string{"notes.cbor", "notes.json", "notes.yaml"} {
		dir := filepath.Join(benchDir, filepath.Ext(snapshot)[1:])
		commit, reload, size, err := run(ctx, dir, snapshot, *count, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", snapshot, err)
			os.Exit(1)
		}
		fmt.Printf("  %-11s commit: %-12v reload: %-12v size: %d bytes\n", snapshot, commit, reload, size)
	}
	fmt.Printf("--------------------------------------------------\n")
}

// run commits count notes one by one, then reopens the notebook the way a
// new CLI invocation would. Every commit saves the whole collection.
func run(ctx context.Context, dir, snapshot string, count int, logger *zap.Logger) (commit, reload time.Duration, size int64, err error) {
	opts := []notebook.Option{
		notebook.WithLogger(logger),
		notebook.WithAutoInit(true),
		notebook.WithSnapshot(snapshot),
		notebook.WithVersioning(false),
	}

	m, err := notebook.Open(ctx, dir, opts...)
	if err != nil {
		return 0, 0, 0, err
	}

	start := time.Now()
	var last *notebook.Pending
	for i := 0; i < count; i++ {
		draft, err := m.BeginDraft()
		if err != nil {
			return 0, 0, 0, err
		}
		if err := m.Update(draft.ID, fmt.Sprintf("Note %d", i), "This is a benchmark note."); err != nil {
			return 0, 0, 0, err
		}
		if last, err = m.Commit(draft.ID); err != nil {
			return 0, 0, 0, err
		}
	}
	if last != nil {
		if err := last.Wait(ctx); err != nil {
			return 0, 0, 0, err
		}
	}
	commit = time.Since(start)
	if err := m.Close(ctx); err != nil {
		return 0, 0, 0, err
	}

	start = time.Now()
	m, err = notebook.Open(ctx, dir, opts...)
	if err != nil {
		return 0, 0, 0, err
	}
	reload = time.Since(start)
	loaded := len(m.Snapshot())
	if err := m.Close(ctx); err != nil {
		return 0, 0, 0, err
	}
	if loaded != count {
		return 0, 0, 0, fmt.Errorf("reloaded %d notes, want %d", loaded, count)
	}

	info, err := os.Stat(filepath.Join(dir, snapshot))
	if err != nil {
		return 0, 0, 0, err
	}
	return commit, reload, info.Size(), nil
}
