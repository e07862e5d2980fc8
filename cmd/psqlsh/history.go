package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/nhath/psqlsh/internal/history"
)

// openHistory is replaced in tests
var openHistory = history.NewStore

const historyUsage = "usage: psqlsh history list|search|rm"

func runHistory(w io.Writer, args []string) error {
	if len(args) == 0 {
		return errors.New(historyUsage)
	}
	store, err := openHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	switch args[0] {
	case "list", "ls":
		return historyList(store, w, args[1:])
	case "search":
		return historySearch(store, w, args[1:])
	case "rm", "delete":
		if len(args) != 2 {
			return errors.New("usage: psqlsh history rm ID")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid history id %q", args[1])
		}
		if err := store.Delete(id); err != nil {
			return err
		}
		fmt.Fprintf(w, "Deleted history entry %d\n", id)
		return nil
	}
	return fmt.Errorf("unknown history command: %s", args[0])
}

func historyList(store *history.Store, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("history list", flag.ContinueOnError)
	limit := fs.Int("n", 20, "Number of entries")
	page := fs.Int("page", 1, "Page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *limit <= 0 || *page <= 0 {
		return errors.New("usage: psqlsh history list [-n N] [-page P] DATABASE")
	}
	database := fs.Arg(0)

	total, err := store.Count(database)
	if err != nil {
		return err
	}
	entries, err := store.List(database, *limit, (*page-1)*(*limit))
	if err != nil {
		return err
	}
	if err := printHistory(w, entries); err != nil {
		return err
	}
	pages := max((total+*limit-1) / *limit, 1)
	fmt.Fprintf(w, "%d entries, page %d of %d\n", total, *page, pages)
	return nil
}

func historySearch(store *history.Store, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("history search", flag.ContinueOnError)
	limit := fs.Int("n", 20, "Number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 || *limit <= 0 {
		return errors.New("usage: psqlsh history search [-n N] DATABASE TEXT")
	}
	entries, err := store.Search(fs.Arg(0), fs.Arg(1), *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No matching entries")
		return nil
	}
	return printHistory(w, entries)
}

func printHistory(w io.Writer, entries []history.HistoryEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEXECUTED\tSTATUS\tROWS\tDURATION\tQUERY")
	for _, e := range entries {
		status := e.Status
		if e.ErrorMessage != "" {
			status += ": " + e.ErrorMessage
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			e.ID,
			e.ExecutedAt.Local().Format(time.DateTime),
			status,
			e.RowCount,
			time.Duration(e.DurationMs)*time.Millisecond,
			e.QueryPreview(60),
		)
	}
	return tw.Flush()
}
