package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/s1natex/taskboard-GO/internal/editor"
	"github.com/s1natex/taskboard-GO/internal/tasks"
	"github.com/s1natex/taskboard-GO/internal/tui"
)

var boardCmd = &cobra.Command{
	Use:   "board <boardID>",
	Short: "Open the interactive board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(true)
		if err != nil {
			return err
		}
		defer e.close()
		return tui.Run(args[0], e.client, tui.WithLogger(e.logger))
	},
}

var newBoardCmd = &cobra.Command{
	Use:   "new-board",
	Short: "Create a board and print its id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(false)
		if err != nil {
			return err
		}
		defer e.close()
		id, err := e.client.CreateBoard(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var newTaskCmd = &cobra.Command{
	Use:   "new <boardID> <title>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(false)
		if err != nil {
			return err
		}
		defer e.close()
		t, err := e.client.Create(cmd.Context(), args[0], args[1], "")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created #%d %q\n", t.ID, t.Title)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <boardID>",
	Short: "List a board's tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(false)
		if err != nil {
			return err
		}
		defer e.close()
		ts, err := e.client.List(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		writeTaskTable(cmd, ts, time.Now())
		return nil
	},
}

func writeTaskTable(cmd *cobra.Command, ts []tasks.Task, now time.Time) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCREATED\tTIMER")
	for _, t := range ts {
		timer := t.TimerState().String()
		switch t.TimerState() {
		case tasks.TimerRunning:
			timer += " " + editor.FormatClock(now.Sub(*t.TimerStart))
		case tasks.TimerStopped:
			timer += " " + editor.FormatClock(t.TimerDuration())
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, t.Title, humanize.RelTime(t.CreatedAt, now, "ago", "from now"), timer)
	}
	_ = tw.Flush()
}

var renameCmd = &cobra.Command{
	Use:   "rename <boardID> <taskID> <title>",
	Short: "Rename a task",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEditor(cmd, args[0], args[1], func(ctx context.Context, ed *editor.Editor) editor.Result {
			return ed.Rename(ctx, args[2])
		})
	},
}

var contentCmd = &cobra.Command{
	Use:   "content <boardID> <taskID> [text|-]",
	Short: "Replace a task's description; '-' or no text reads stdin",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := "-"
		if len(args) == 3 {
			text = args[2]
		}
		if text == "-" {
			data, err := readAll(cmd)
			if err != nil {
				return err
			}
			text = data
		}
		return withEditor(cmd, args[0], args[1], func(ctx context.Context, ed *editor.Editor) editor.Result {
			return ed.EditContent(ctx, text)
		})
	},
}

func readAll(cmd *cobra.Command) (string, error) {
	var b bytes.Buffer
	if _, err := b.ReadFrom(cmd.InOrStdin()); err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return b.String(), nil
}

var timerCmd = &cobra.Command{
	Use:       "timer start|stop <boardID> <taskID>",
	Short:     "Start or stop a task's work timer",
	Args:      cobra.ExactArgs(3),
	ValidArgs: []string{"start", "stop"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var op func(*editor.Editor, context.Context) editor.Result
		switch args[0] {
		case "start":
			op = (*editor.Editor).StartTimer
		case "stop":
			op = (*editor.Editor).StopTimer
		default:
			return fmt.Errorf("unknown timer action %q (want start or stop)", args[0])
		}
		return withEditor(cmd, args[1], args[2], func(ctx context.Context, ed *editor.Editor) editor.Result {
			return op(ed, ctx)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <boardID> <taskID>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEditor(cmd, args[0], args[1], func(ctx context.Context, ed *editor.Editor) editor.Result {
			return ed.Delete(ctx)
		})
	},
}

// withEditor fetches the task, opens it in an editor, runs op and closes.
func withEditor(cmd *cobra.Command, boardID, rawID string, op func(context.Context, *editor.Editor) editor.Result) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("task id %q: %w", rawID, err)
	}
	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	t, err := e.client.Get(ctx, boardID, id)
	if err != nil {
		return err
	}

	ed := editor.New(boardID, e.client, editor.WithLogger(e.logger))
	ed.Open(&t)
	res := op(ctx, ed)
	if res.Err != nil {
		return fmt.Errorf("%s #%d: %w", res.Op, id, res.Err)
	}
	if res.Op == editor.OpDelete {
		fmt.Fprintf(cmd.OutOrStdout(), "deleted #%d\n", id)
		return nil
	}
	final, _ := ed.Close()
	printTask(cmd, final)
	return nil
}

func printTask(cmd *cobra.Command, t tasks.Task) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "#%d %s\n", t.ID, t.Title)
	fmt.Fprintf(out, "  created %s\n", t.CreatedAt.Local().Format("2006-01-02"))
	switch t.TimerState() {
	case tasks.TimerRunning:
		fmt.Fprintf(out, "  timer running since %s\n", t.TimerStart.Local().Format(time.Kitchen))
	case tasks.TimerStopped:
		fmt.Fprintf(out, "  timer stopped after %s\n", editor.FormatClock(t.TimerDuration()))
	}
}
