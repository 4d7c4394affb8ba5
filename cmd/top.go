package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/desertthunder/toplikes/internal/auth"
	"github.com/desertthunder/toplikes/internal/formatter"
	"github.com/desertthunder/toplikes/internal/services"
	"github.com/desertthunder/toplikes/internal/shared"
	"github.com/desertthunder/toplikes/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Top authorizes against Spotify, fetches every liked track and prints the most liked artists.
func (r *Runner) Top(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("json") && cmd.Bool("csv") {
		return fmt.Errorf("%w: --json and --csv cannot be combined", shared.ErrInvalidArgument)
	}

	top := r.config.Report.Top
	if cmd.IsSet("top") {
		top = cmd.Int("top")
	}
	if top < 0 {
		return fmt.Errorf("%w: --top must not be negative", shared.ErrInvalidArgument)
	}

	timeout := r.config.Auth.Timeout
	if cmd.IsSet("timeout") {
		timeout = cmd.Duration("timeout")
	}

	clientID, err := r.resolveClientID(cmd)
	if err != nil {
		return err
	}

	// The authorization code is single use, so storage problems surface before it is spent.
	var saver tasks.SnapshotSaver
	if cmd.Bool("save") {
		db, repo, err := r.openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		saver = repo
	}

	var browser auth.Browser
	if !cmd.Bool("no-browser") {
		browser = r.browser
	}

	authorizer := auth.NewAuthorizer(auth.AuthorizerOptions{
		ClientID:     clientID,
		RedirectBase: r.config.Spotify.RedirectBase,
		CallbackPath: r.config.Spotify.CallbackPath,
		Scopes:       r.config.Spotify.Scopes,
		AuthURL:      r.config.Spotify.AuthURL,
		TokenURL:     r.config.Spotify.TokenURL,
		Timeout:      timeout,
		Browser:      browser,
		HTTPClient:   r.httpClient,
		Logger:       shared.WithLogger(r.logger, "component", "auth"),
		Output:       r.prompt,
	})

	token, err := authorizer.Authorize(ctx)
	if err != nil {
		return err
	}
	r.status("%s", formatter.Styles.OK("✓ Authorized"))

	spotify := services.NewSpotifyService(services.SpotifyOptions{
		BaseURL:    r.config.Spotify.APIURL,
		HTTPClient: r.httpClient,
		Token:      token,
		PageSize:   r.config.Fetch.PageSize,
		RateLimit:  r.config.HTTP.RateLimit,
		MaxPages:   r.config.Fetch.MaxPages,
		Logger:     shared.WithLogger(r.logger, "component", "spotify"),
	})

	progress := make(chan tasks.ProgressUpdate, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Debug("progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			r.status("→ %s", update.Message)
		}
	}()

	result, runErr := tasks.NewReportEngine(spotify, saver).Run(ctx, progress, top)
	close(progress)
	wg.Wait()

	if result == nil {
		return runErr
	}

	if err := r.writeReport(cmd, result); err != nil {
		return err
	}
	return runErr
}

func (r *Runner) writeReport(cmd *cli.Command, result *tasks.ReportResult) error {
	summary := result.Summary

	switch {
	case cmd.Bool("json"):
		payload := struct {
			TrackCount  int                      `json:"track_count"`
			ArtistCount int                      `json:"artist_count"`
			SnapshotID  string                   `json:"snapshot_id,omitempty"`
			Artists     []formatter.RankedArtist `json:"artists"`
		}{
			TrackCount:  summary.TrackCount,
			ArtistCount: summary.ArtistCount,
			Artists:     formatter.Ranked(summary.Top),
		}
		if result.Snapshot != nil {
			payload.SnapshotID = result.Snapshot.ID()
		}
		return r.writeJSON(payload)
	case cmd.Bool("csv"):
		data, err := formatter.TalliesToCSV(summary.Top)
		if err != nil {
			return err
		}
		return r.write(data)
	default:
		if err := r.writePlain("\n%s", formatter.RenderReport(summary.Top, summary.TrackCount, summary.ArtistCount)); err != nil {
			return err
		}
		if result.Snapshot != nil {
			r.status("%s", formatter.Styles.Help(fmt.Sprintf("Saved as snapshot #%d (%s)", result.Snapshot.Sequence(), result.Snapshot.ID())))
		}
		return nil
	}
}

// resolveClientID picks the client id from the argument, then --client-id or SPOTIFY_CLIENT_ID, then the
// config file, and finally asks for it on standard input.
func (r *Runner) resolveClientID(cmd *cli.Command) (string, error) {
	if id := cmd.StringArg("client-id"); id != "" {
		return id, nil
	}
	if id := cmd.String("client-id"); id != "" {
		return id, nil
	}
	if id := r.config.Spotify.ClientID; id != "" {
		return id, nil
	}

	id, err := r.readLine("Enter your Spotify Client ID: ")
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read client id: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: pass it as an argument, with --client-id, SPOTIFY_CLIENT_ID or spotify.client_id in the config", shared.ErrMissingClientID)
	}
	return id, nil
}
