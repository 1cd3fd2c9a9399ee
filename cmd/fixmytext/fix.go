package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/fixmytext/internal/actions"
	"github.com/jonathan/fixmytext/internal/clipboard"
	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/richtext"
)

var (
	fixFile      string
	fixMarkdown  bool
	fixClipboard bool
	fixTier      string
)

var fixCmd = &cobra.Command{
	Use:   "fix [text]",
	Short: "Correct grammar and spelling",
	Long: `Corrects text given as arguments, read from --file, or read from stdin and prints the result.

With --clipboard the single-press action runs instead: the selection in the focused
application is copied, corrected and pasted back using the automation commands from
the configuration file. Bind this to a global hotkey when no UI shell is running.`,
	RunE: runFix,
}

func init() {
	fixCmd.Flags().StringVarP(&fixFile, "file", "f", "", "Read text from file (\"-\" for stdin)")
	fixCmd.Flags().BoolVar(&fixMarkdown, "markdown", false, "Allow markdown emphasis in the correction")
	fixCmd.Flags().BoolVar(&fixClipboard, "clipboard", false, "Copy, correct and paste the current selection")
	fixCmd.Flags().StringVar(&fixTier, "tier", string(llm.TierStandard), "Model tier: lite, standard or advanced")
	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	tier := llm.ModelTier(strings.ToLower(fixTier))
	switch tier {
	case llm.TierLite, llm.TierStandard, llm.TierAdvanced:
	default:
		return fmt.Errorf("unknown tier %q", fixTier)
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	model, err := newModel(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer model.Close()

	if fixClipboard {
		clip, err := clipboard.NewSystem()
		if err != nil {
			return err
		}
		action := actions.NewSilentFix(actions.Deps{
			Clipboard:   clip,
			Automation:  clipboard.NewCommandAutomation(cfg.Automation, logger),
			Matcher:     richtext.NewMatcher(cfg.RichText),
			Logger:      logger,
			SettleDelay: cfg.SettleDelay(),
		}, model).WithTier(tier)

		outcome := action.Execute(ctx)
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "silent fix: %s\n", outcome)
		}
		if outcome == actions.OutcomeFailed {
			return fmt.Errorf("silent fix failed; the clipboard still holds the original text")
		}
		return nil
	}

	text, err := readInput(cmd.InOrStdin(), args, fixFile)
	if err != nil {
		return err
	}
	fixed, err := actions.Correct(ctx, model, tier, text, fixMarkdown)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), fixed)
	return nil
}
