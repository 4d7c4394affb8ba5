package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/toplikes/internal/formatter"
	"github.com/desertthunder/toplikes/internal/models"
	"github.com/desertthunder/toplikes/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints saved snapshots, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	snaps, err := repo.List(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]formatter.SnapshotJSON, len(snaps))
		for i, s := range snaps {
			out[i] = formatter.SnapshotToJSON(s)
		}
		return r.writeJSON(out)
	}

	return r.writePlain("%s", formatter.RenderSnapshots(snaps))
}

// HistoryShow prints one saved ranking. The id "latest" selects the most recent snapshot.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: snapshot id", shared.ErrMissingArgument)
	}

	db, repo, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	var snap *models.Snapshot
	if id == "latest" {
		snap, err = repo.Latest()
	} else {
		snap, err = repo.Get(id)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(formatter.SnapshotToJSON(snap))
	}

	r.writePlain("Snapshot #%d saved %s\n\n", snap.Sequence(), snap.CreatedAt().Local().Format("2006-01-02 15:04:05"))
	return r.writePlain("%s", formatter.RenderReport(snap.Tallies(), snap.TrackCount(), snap.ArtistCount()))
}

// HistoryDelete removes a saved ranking.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: snapshot id", shared.ErrMissingArgument)
	}

	db, repo, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Delete(id); err != nil {
		return err
	}

	r.logger.Info("snapshot deleted", "id", id)
	return r.writePlain("✓ Deleted snapshot %s\n", id)
}
