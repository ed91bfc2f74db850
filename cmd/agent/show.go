package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/videostack/storyboard-agent/internal/logging"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

func newShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <storyboard-id>",
		Short: "Print a storyboard's scenes and shots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, _, err := cmdCtx.remote()
			if err != nil {
				return err
			}

			store := storyboard.New(remote, cmdCtx.logger)
			if err := store.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStoryboard(store.Snapshot(), !isTerminal(cmd.OutOrStdout())))
			return nil
		},
	}
}

func renderStoryboard(st storyboard.State, plain bool) string {
	var b strings.Builder

	title := st.Title
	if title == "" {
		title = st.OriginalPrompt
	}
	fmt.Fprintf(&b, "%s (%s)\n", title, st.StoryboardID)

	var rows [][]string
	for _, scene := range st.Scenes {
		if len(scene.Shots) == 0 {
			rows = append(rows, []string{scene.Name, "-", "", "", ""})
		}
		for j, shot := range scene.Shots {
			name := ""
			if j == 0 {
				name = scene.Name
			}
			rows = append(rows, []string{
				name,
				strconv.Itoa(j + 1),
				logging.Truncate(shot.Prompt, 48),
				strconv.Itoa(shot.Duration()) + "s",
				mediaLabel(shot),
			})
		}
	}

	totals := storyboard.Aggregate(st.Scenes)
	footer := []string{
		humanize.Comma(int64(totals.SceneCount)) + " scenes",
		humanize.Comma(int64(totals.ShotCount)),
		"",
		formatDuration(totals.DurationSeconds),
		"",
	}

	b.WriteString(renderTable(
		[]string{"Scene", "Shot", "Prompt", "Duration", "Media"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
		footer,
		plain,
	))
	b.WriteString("\n")
	return b.String()
}

func mediaLabel(shot storyboard.Shot) string {
	switch {
	case shot.Status == storyboard.ShotStatusFailed:
		return "failed"
	case shot.Status == storyboard.ShotStatusProcessing:
		return "generating"
	case shot.VideoURL != "":
		return "video"
	case shot.ImageURL != "":
		return "image"
	}
	return "-"
}

func formatDuration(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}
