package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/toplikes/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// RenderTable draws the ranking as a bordered table with columns Rank, Artist Name and Liked Tracks.
//
// An empty ranking renders a single line saying so instead of an empty table.
func RenderTable(tallies []models.ArtistTally) string {
	if len(tallies) == 0 {
		return Styles.Warn("No liked artists found.") + "\n"
	}

	rows := make([][]string, len(tallies))
	for i, t := range tallies {
		rows[i] = []string{strconv.Itoa(i + 1), t.Artist.Name, strconv.Itoa(t.Count)}
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(Styles.border).
		Headers("Rank", "Artist Name", "Liked Tracks").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Inherit(Styles.header)
			}
			if col != 1 {
				style = style.Align(lipgloss.Right)
			}
			return style
		})

	return tbl.String() + "\n"
}

// RenderReport renders the ranking under a heading naming how many artists are shown.
func RenderReport(tallies []models.ArtistTally, trackCount, artistCount int) string {
	var b strings.Builder
	b.WriteString(Styles.Title(fmt.Sprintf("Your Top %d Liked Artists:", len(tallies))))
	b.WriteString("\n")
	b.WriteString(RenderTable(tallies))
	b.WriteString(Styles.Help(fmt.Sprintf("%d liked tracks, %d distinct artists", trackCount, artistCount)))
	b.WriteString("\n")
	return b.String()
}

// RenderSnapshots lists saved snapshots, newest first, with their leading artist.
func RenderSnapshots(snaps []*models.Snapshot) string {
	if len(snaps) == 0 {
		return Styles.Warn("No snapshots saved yet. Run with --save to record one.") + "\n"
	}

	rows := make([][]string, len(snaps))
	for i, s := range snaps {
		top := "-"
		if tallies := s.Tallies(); len(tallies) > 0 {
			top = fmt.Sprintf("%s (%d)", tallies[0].Artist.Name, tallies[0].Count)
		}
		rows[i] = []string{
			strconv.Itoa(s.Sequence()),
			s.ID(),
			s.CreatedAt().Local().Format(timeLayout),
			strconv.Itoa(s.TrackCount()),
			strconv.Itoa(s.ArtistCount()),
			top,
		}
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(Styles.border).
		Headers("#", "ID", "Saved", "Tracks", "Artists", "Top Artist").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Inherit(Styles.header)
			}
			return style
		})

	return tbl.String() + "\n"
}
