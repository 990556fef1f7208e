package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jhunt/go-table"
	"github.com/monasticacademy/hostip/pkg/history"
)

// withStore opens the history database at path for the duration of f
func withStore(path string, f func(*history.Store) error) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	verbosef("opened history database %v", path)
	return f(store)
}

// writeHistory prints entries as a table, or a note when there are none
func writeHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No IP addresses in the history.")
		return
	}

	tbl := table.NewTable("ID", "Hostname", "IP Address", "Resolved")
	for _, e := range entries {
		tbl.Row(e, e.ID, e.Hostname, e.Address, e.Time().Format(time.RFC3339))
	}
	tbl.Output(w)
}

func showHistory(ctx context.Context, store *history.Store, w io.Writer) error {
	entries, err := store.List(ctx)
	if err != nil {
		return err
	}
	verbosef("found %d records", len(entries))
	writeHistory(w, entries)
	return nil
}

func deleteRecord(ctx context.Context, store *history.Store, id int64, w io.Writer) error {
	err := store.Delete(ctx, id)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no record found with ID %d", id)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Record with ID %d deleted.\n", id)
	return nil
}

func clearHistory(ctx context.Context, store *history.Store, w io.Writer) error {
	n, err := store.Clear(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		verbose("history was already empty")
	}
	fmt.Fprintf(w, "History cleared (%d records deleted).\n", n)
	return nil
}
