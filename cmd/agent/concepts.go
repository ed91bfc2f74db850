package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/videostack/storyboard-agent/internal/concept"
	"github.com/videostack/storyboard-agent/internal/logging"
)

func newConceptsCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "concepts",
		Short: "List saved concept drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := cmdCtx.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			drafts, err := concept.NewRepository(database.Conn()).ListDrafts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No concept drafts")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDrafts(drafts, time.Now(), !isTerminal(cmd.OutOrStdout())))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of drafts to list")
	return cmd
}

func renderDrafts(drafts []*concept.Draft, now time.Time, plain bool) string {
	rows := make([][]string, 0, len(drafts))
	for _, d := range drafts {
		storyboardID := d.StoryboardID
		if storyboardID == "" {
			storyboardID = "-"
		}
		rows = append(rows, []string{
			shortID(d.ID),
			logging.Truncate(d.Concept, 40),
			storyboardID,
			humanize.RelTime(d.UpdatedAt, now, "ago", "from now"),
		})
	}
	return renderTable(
		[]string{"Draft", "Concept", "Storyboard", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		nil,
		plain,
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
