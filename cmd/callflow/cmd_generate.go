// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/voicegraph/callflow/internal/cache"
	"github.com/voicegraph/callflow/internal/config"
	"github.com/voicegraph/callflow/internal/export"
	"github.com/voicegraph/callflow/internal/flow"
	"github.com/voicegraph/callflow/internal/mermaid"
	"github.com/voicegraph/callflow/internal/msteams"
)

var (
	flagOutput    string
	flagFormat    string
	flagDirection string
	flagTheme     string
	flagAll       bool
	flagNoCache   bool
	flagExport    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [app id or name ...]",
	Short: "Generate a call flow diagram for one or more voice apps",
	Long: `Generate walks the named auto attendants or call queues and
everything reachable from them through transfers, and renders the
combined call flow as one diagram.

With no arguments and an interactive terminal, a picker lists the
tenant's voice apps. Pass --all to diagram the entire tenant.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (default stdout)")
	generateCmd.Flags().StringVar(&flagFormat, "format", "mermaid", "output format: mermaid, markdown, html")
	generateCmd.Flags().StringVar(&flagDirection, "direction", "", "flowchart orientation: TB or LR")
	generateCmd.Flags().StringVar(&flagTheme, "theme", "", "palette: default or dark")
	generateCmd.Flags().BoolVar(&flagAll, "all", false, "diagram every voice app in the tenant")
	generateCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "bypass the snapshot cache")
	generateCmd.Flags().BoolVar(&flagExport, "export-assets", false, "write greeting text and audio pointers alongside")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dir, cleanup, err := openDirectory()
	if err != nil {
		return err
	}
	defer cleanup()

	seeds := args
	if flagAll {
		seeds, err = allApps(ctx, dir)
		if err != nil {
			return err
		}
	}
	if len(seeds) == 0 {
		seeds, err = pickApps(ctx, dir)
		if err != nil {
			return err
		}
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no voice apps selected")
	}

	opts := formatterOptions()
	opts.ExportAssets = opts.ExportAssets || flagExport

	driver := flow.NewDriver(dir, opts, logger)
	started := time.Now()
	result, err := driver.Run(ctx, seeds...)
	if err != nil {
		return fmt.Errorf("building call flow: %w", err)
	}
	logger.Info("traversal complete",
		"visited", result.Visited,
		"skipped", len(result.Skipped),
		"fragments", len(result.Fragments),
		"elapsed", time.Since(started).String(),
	)
	for _, id := range result.Skipped {
		printWarning("voice app %q not found, skipped", id)
	}

	var links map[string]string
	if opts.ExportAssets && len(result.Assets) > 0 {
		if links, err = exportAssets(ctx, driver, result); err != nil {
			return err
		}
	}

	document, err := renderDocument(result, flagFormat, links)
	if err != nil {
		return err
	}

	if flagOutput == "" {
		fmt.Print(document)
		return nil
	}
	if err := os.WriteFile(flagOutput, []byte(document), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", flagOutput, err)
	}
	printSuccess("wrote %s (%d apps, %d skipped)", flagOutput, result.Visited, len(result.Skipped))
	return nil
}

// openDirectory wires the live client, wrapped in the snapshot cache
// unless disabled.
func openDirectory() (msteams.Directory, func(), error) {
	cfg := config.Global

	token := os.Getenv(cfg.Tenant.TokenEnv)
	if token == "" {
		return nil, nil, fmt.Errorf("no token in $%s; set it or adjust tenant.token_env", cfg.Tenant.TokenEnv)
	}

	client, err := msteams.NewClient(msteams.ClientOptions{
		BaseURL:           cfg.Tenant.BaseURL,
		Token:             token,
		RequestsPerSecond: cfg.Tenant.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating tenant client: %w", err)
	}

	if flagNoCache || !cfg.Cache.Enabled {
		return client, func() {}, nil
	}

	cached, err := cache.Open(client, cache.Config{
		Path:   cfg.CachePath(),
		TTL:    cfg.Cache.TTL,
		Logger: logger,
	})
	if err != nil {
		logger.Warn("snapshot cache unavailable, continuing without it", "error", err.Error())
		return client, func() {}, nil
	}
	return cached, func() { _ = cached.Close() }, nil
}

// allApps enumerates every voice app id in the tenant.
func allApps(ctx context.Context, dir msteams.Directory) ([]string, error) {
	aas, err := dir.ListAutoAttendants(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing auto attendants: %w", err)
	}
	cqs, err := dir.ListCallQueues(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing call queues: %w", err)
	}
	ids := make([]string, 0, len(aas)+len(cqs))
	for _, app := range aas {
		ids = append(ids, app.ID)
	}
	for _, app := range cqs {
		ids = append(ids, app.ID)
	}
	return ids, nil
}

// pickApps shows an interactive multi-select of the tenant's voice
// apps. Outside a terminal it fails with guidance instead of hanging.
func pickApps(ctx context.Context, dir msteams.Directory) ([]string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return nil, fmt.Errorf("no voice apps named; pass app ids/names or --all")
	}

	aas, err := dir.ListAutoAttendants(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing auto attendants: %w", err)
	}
	cqs, err := dir.ListCallQueues(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing call queues: %w", err)
	}

	options := make([]huh.Option[string], 0, len(aas)+len(cqs))
	for _, app := range aas {
		options = append(options, huh.NewOption("AA  "+app.Name, app.ID))
	}
	for _, app := range cqs {
		options = append(options, huh.NewOption("CQ  "+app.Name, app.ID))
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("tenant has no voice apps")
	}

	var selected []string
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Voice apps").
			Description("Select the apps to diagram").
			Options(options...).
			Value(&selected),
	))
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("app selection aborted: %w", err)
	}
	return selected, nil
}

// formatterOptions derives greeting rendering options from config.
func formatterOptions() flow.FormatterOptions {
	out := config.Global.Output
	return flow.FormatterOptions{
		ShowText:     out.ShowGreetingText,
		ShowFilename: out.ShowAudioFileNames,
		TruncateAt:   out.TruncateLabelsAt,
		ExportAssets: out.ExportAssets,
	}
}

// newSerializer builds a serializer from config plus flag overrides.
func newSerializer(fenced bool, links map[string]string) *mermaid.Serializer {
	out := config.Global.Output

	direction := mermaid.Direction(out.Direction)
	if flagDirection != "" {
		direction = mermaid.Direction(flagDirection)
	}
	themeName := out.Theme
	if flagTheme != "" {
		themeName = flagTheme
	}
	theme := mermaid.ThemeByName(themeName)
	theme.Merge(out.ThemeOverrides)

	return mermaid.NewSerializer(
		mermaid.WithDirection(direction),
		mermaid.WithTheme(theme),
		mermaid.WithMarkdownFence(fenced),
		mermaid.WithAssetLinks(links),
	)
}

// renderDocument serializes a traversal result in the selected format.
func renderDocument(result *flow.Result, format string, links map[string]string) (string, error) {
	switch format {
	case "mermaid":
		fenced := config.Global.Output.MarkdownFence
		return newSerializer(fenced, links).Serialize(result.Fragments), nil

	case "markdown":
		return newSerializer(true, links).Serialize(result.Fragments), nil

	case "html":
		diagram := newSerializer(false, links).Serialize(result.Fragments)
		var sb strings.Builder
		err := mermaid.WriteHTML(&sb, mermaid.HTMLPage{
			Title:     "Call Flow",
			Diagram:   diagram,
			Theme:     currentTheme(),
			Generated: time.Now().Format(time.RFC1123),
		})
		if err != nil {
			return "", err
		}
		return sb.String(), nil

	default:
		return "", fmt.Errorf("unknown format %q (want mermaid, markdown, or html)", format)
	}
}

func currentTheme() *mermaid.Theme {
	name := config.Global.Output.Theme
	if flagTheme != "" {
		name = flagTheme
	}
	theme := mermaid.ThemeByName(name)
	theme.Merge(config.Global.Output.ThemeOverrides)
	return theme
}

// exportAssets writes greeting text and audio pointers next to the
// diagram output and returns node-id click links to the written files,
// relative to the document.
func exportAssets(ctx context.Context, driver *flow.Driver, result *flow.Result) (map[string]string, error) {
	dir := config.Global.Output.AssetDir
	hrefBase := dir
	if dir == "" {
		hrefBase = "assets"
		base := "."
		if flagOutput != "" {
			base = filepath.Dir(flagOutput)
		}
		dir = filepath.Join(base, "assets")
	}
	sink, err := export.NewFileSink(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("creating asset directory: %w", err)
	}
	driver.ExportAssets(ctx, result, sink)

	links := make(map[string]string, len(result.Assets))
	for _, ref := range result.Assets {
		links[ref.NodeID] = filepath.ToSlash(filepath.Join(hrefBase, ref.Task.OutputName()))
	}
	printSuccess("exported %d greeting assets to %s", len(result.Assets), dir)
	return links, nil
}
