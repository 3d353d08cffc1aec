package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dustin/go-humanize"

	"brainzzz/internal/ui"
)

func runArchive(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("archive requires an action: list|drop|exports|prune")
	}
	action := args[0]
	fs := flag.NewFlagSet("archive "+action, flag.ContinueOnError)
	var cf clientFlags
	cf.register(fs)
	brain := fs.Int("brain", 0, "brain id for drop")
	limit := fs.Int("limit", 20, "journal entries to list (0 lists all)")
	keep := fs.Int("keep", 100, "journal entries to keep when pruning")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	client, _, err := cf.connect(fs)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	switch action {
	case "list":
		records, err := client.CachedSnapshots(ctx)
		if err != nil {
			return err
		}
		ui.Banner(fmt.Sprintf("archived snapshots, %d brains", len(records)))
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{
				fmt.Sprintf("%d", r.BrainID),
				humanize.Comma(int64(len(r.Snapshot.Nodes))),
				humanize.Comma(int64(len(r.Snapshot.Connections))),
				fmt.Sprintf("%.3f", r.Snapshot.Fitness),
				ui.Timestamp(r.FetchedAt),
			})
		}
		ui.Table([]string{"ID", "NODES", "CONNS", "FITNESS", "FETCHED"}, rows)
		return nil
	case "drop":
		if *brain <= 0 {
			return usageError("archive drop requires --brain")
		}
		ok, err := client.DropCachedSnapshot(ctx, *brain)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("%s brain %d was not archived\n", ui.WarnIcon(), *brain)
			return nil
		}
		fmt.Printf("%s dropped brain %d\n", ui.StatusIcon(true), *brain)
		return nil
	case "exports":
		records, err := client.ExportHistory(ctx, *limit)
		if err != nil {
			return err
		}
		ui.Banner(fmt.Sprintf("export journal, %d entries", len(records)))
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{
				ui.Timestamp(r.CreatedAt),
				fmt.Sprintf("%d", r.BrainID),
				r.Layout,
				r.Format,
				r.Filename,
				humanize.Bytes(uint64(r.Bytes)),
			})
		}
		ui.Table([]string{"TIME", "BRAIN", "LAYOUT", "FORMAT", "FILE", "SIZE"}, rows)
		return nil
	case "prune":
		removed, err := client.PruneExportHistory(ctx, *keep)
		if err != nil {
			return err
		}
		fmt.Printf("%s removed %d journal entries, kept the newest %d\n", ui.StatusIcon(true), removed, *keep)
		return nil
	default:
		return usageError(fmt.Sprintf("unknown archive action: %s", action))
	}
}
