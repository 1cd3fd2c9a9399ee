package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/fixmytext/internal/observability"
	"github.com/jonathan/fixmytext/internal/pyramid"
)

var (
	processFile         string
	processType         string
	processSourceApp    string
	processInstructions string
	processJSON         bool
)

var processCmd = &cobra.Command{
	Use:   "process [text]",
	Short: "Restructure text into an email, wiki page, memo or slide outline",
	Long: `Runs the document pipeline: type and language detection, a foundation draft,
four parallel specialist reviews (subject, headings, completeness, style), rule-based
integration and assembly.

The final document goes to stdout. --verbose prints phase progress and a summary to
stderr; --json prints the full result instead of the document.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processFile, "file", "f", "", "Read text from file (\"-\" for stdin)")
	processCmd.Flags().StringVarP(&processType, "type", "t", "", "Document type: auto, email, wiki, memo or powerpoint (default from config)")
	processCmd.Flags().StringVar(&processSourceApp, "source-app", "", "Application the text came from")
	processCmd.Flags().StringVarP(&processInstructions, "instructions", "i", "", "Extra instructions for the foundation draft")
	processCmd.Flags().BoolVar(&processJSON, "json", false, "Print the full result as JSON")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	typeName := processType
	if typeName == "" {
		typeName = cfg.Pipeline.DefaultType
	}
	docType, err := pyramid.ParseDocumentType(typeName)
	if err != nil {
		return err
	}

	text, err := readInput(cmd.InOrStdin(), args, processFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	model, err := newModel(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer model.Close()

	printer := observability.NewPrinter(cmd.ErrOrStderr())
	var onProgress pyramid.ProgressCallback
	if verbose {
		onProgress = printer.PrintProgress
	}

	pipeline := pyramid.New(model,
		pyramid.WithThresholds(cfg.Pipeline.Thresholds),
		pyramid.WithLogger(logger))
	result, err := pipeline.ProcessWithProgress(ctx, pyramid.Request{
		Text:         text,
		DocumentType: docType,
		SourceApp:    processSourceApp,
		Instructions: processInstructions,
	}, onProgress)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if processJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if verbose {
		printer.PrintResult(result)
	}
	if result.Subject != "" {
		fmt.Fprintf(out, "%s: %s\n\n", result.FormatElements.SubjectLabel, result.Subject)
	}
	fmt.Fprintln(out, result.FinalDocument)
	return nil
}
