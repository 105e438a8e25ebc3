package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Archimedes/internal/app"
	"Archimedes/internal/domain"
	"Archimedes/internal/markup"
	"Archimedes/internal/usecase"
)

func newDraftCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "draft <draft.json>",
		Short: "Submit a new story draft from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in usecase.DraftInput
			if err := readJSON(args[0], &in); err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.Application) error {
				story, err := a.Lifecycle().SubmitDraft(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), story.ID)
				return nil
			})
		},
	}
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <story-id> <draft.json>",
		Short: "Rewrite the headline and rich fields of a story",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in usecase.DraftInput
			if err := readJSON(args[1], &in); err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.Application) error {
				story, err := a.Lifecycle().UpdateDraft(cmd.Context(), args[0], in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s updated (%s)\n", story.ID, story.Status)
				return nil
			})
		},
	}
}

func newStageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stage <story-id>",
		Short: "Send a story to review and notify the approvals channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.Application) error {
				if err := a.Lifecycle().Stage(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", args[0], domain.StatusAwaitingReview)
				return nil
			})
		},
	}
}

func newApproveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <story-id>",
		Short: "Approve a story awaiting review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.Application) error {
				if err := a.Lifecycle().Approve(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", args[0], domain.StatusApproved)
				return nil
			})
		},
	}
}

type publishFlags struct {
	requestedBy    string
	subject        string
	introPath      string
	conclusionPath string
}

func (f *publishFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.requestedBy, "as", "", "Chat identity of the requester")
	cmd.Flags().StringVar(&f.subject, "subject", "", "Newsletter subject")
	cmd.Flags().StringVar(&f.introPath, "intro", "", "Rich document JSON for the intro")
	cmd.Flags().StringVar(&f.conclusionPath, "conclusion", "", "Rich document JSON for the conclusion")
}

func (f *publishFlags) request() (usecase.PublishRequest, error) {
	intro, err := readDocument(f.introPath)
	if err != nil {
		return usecase.PublishRequest{}, err
	}
	conclusion, err := readDocument(f.conclusionPath)
	if err != nil {
		return usecase.PublishRequest{}, err
	}
	return usecase.PublishRequest{
		RequestedBy: f.requestedBy,
		Subject:     f.subject,
		Intro:       intro,
		Conclusion:  conclusion,
	}, nil
}

func newPublishCmd(opts *rootOptions) *cobra.Command {
	flags := &publishFlags{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish every approved story to the announcement channel and the newsletter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.Application) error {
				result, err := a.Publish(cmd.Context(), req)
				if errors.Is(err, domain.ErrEmptyBatch) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to publish: no story is approved.")
					return nil
				}
				printResult(cmd, result)
				return err
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func printResult(cmd *cobra.Command, result domain.PublishResult) {
	out := cmd.OutOrStdout()
	for _, outcome := range []domain.TargetOutcome{result.Announcement, result.Newsletter} {
		if outcome.Target == "" {
			continue
		}
		if outcome.OK {
			fmt.Fprintf(out, "%-12s ok     %s\n", outcome.Target, outcome.Detail)
		} else {
			fmt.Fprintf(out, "%-12s failed %v\n", outcome.Target, outcome.Err)
		}
	}
	if result.Committed {
		fmt.Fprintf(out, "%d stories marked %s\n", result.Published, domain.StatusPublished)
	} else if result.Announcement.Target != "" {
		fmt.Fprintln(out, "stories left Approved")
	}
}

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	flags := &publishFlags{}
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the newsletter the next publish would send",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.Application) error {
				out, err := a.Preview(cmd.Context(), req)
				if errors.Is(err, domain.ErrEmptyBatch) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to preview: no story is approved.")
					return nil
				}
				if err != nil {
					return err
				}
				if asHTML {
					fmt.Fprintln(cmd.OutOrStdout(), out.HTML)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), out.Text)
				}
				return nil
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&asHTML, "html", false, "Print the HTML body instead of the text rendition")
	return cmd
}

func newStoriesCmd(opts *rootOptions) *cobra.Command {
	var chatID string
	cmd := &cobra.Command{
		Use:   "stories",
		Short: "List the stories of a reporter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.Application) error {
				stories, err := a.Lifecycle().StoriesByReporter(cmd.Context(), chatID)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSTATUS\tHEADLINE")
				for _, story := range stories {
					fmt.Fprintf(w, "%s\t%s\t%s\n", story.ID, story.Status, story.Headline)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&chatID, "reporter", "", "Chat identity of the reporter")
	_ = cmd.MarkFlagRequired("reporter")
	return cmd
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <document.json>",
		Short: "Print the markup of a rich document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), markup.Render(doc))
			return nil
		},
	}
}

func newReporterCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reporter",
		Short: "Manage the newsroom roster",
	}

	var reporter domain.Reporter
	add := &cobra.Command{
		Use:   "add",
		Short: "Add or update a reporter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.Application) error {
				if err := a.Reporters().SaveReporter(cmd.Context(), reporter); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reporter %s saved\n", reporter.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&reporter.ID, "id", "", "Reporter id")
	add.Flags().StringVar(&reporter.DisplayName, "name", "", "Display name")
	add.Flags().StringVar(&reporter.ChatID, "chat-id", "", "Chat platform identity")
	add.Flags().BoolVar(&reporter.CanPublish, "can-publish", false, "Grant publishing rights")
	_ = add.MarkFlagRequired("id")
	_ = add.MarkFlagRequired("chat-id")

	cmd.AddCommand(add)
	return cmd
}
