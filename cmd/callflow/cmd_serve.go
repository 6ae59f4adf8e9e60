// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/voicegraph/callflow/internal/config"
	"github.com/voicegraph/callflow/internal/flow"
	"github.com/voicegraph/callflow/internal/mermaid"
	"github.com/voicegraph/callflow/internal/msteams"
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live HTML previews of tenant call flows",
	Long: `Serve starts a local preview server. Each request re-walks the
requested voice apps, so the rendered diagram follows tenant changes
within the cache TTL.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	dir, cleanup, err := openDirectory()
	if err != nil {
		return err
	}
	defer cleanup()

	addr := config.Global.Serve.Addr
	if flagServeAddr != "" {
		addr = flagServeAddr
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/", handleIndex(dir))
	router.GET("/app/:id", handlePreview(dir))
	router.GET("/app/:id/diagram.mmd", handleDiagram(dir))

	printSuccess("preview server listening on http://%s", addr)
	return router.Run(addr)
}

// requestLogger bridges gin request logs into the structured logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(started).String(),
		)
	}
}

// handleIndex lists the tenant's voice apps with preview links.
func handleIndex(dir msteams.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		aas, err := dir.ListAutoAttendants(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		cqs, err := dir.ListCallQueues(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		type appLink struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Kind string `json:"kind"`
			URL  string `json:"url"`
		}
		links := make([]appLink, 0, len(aas)+len(cqs))
		for _, app := range aas {
			links = append(links, appLink{ID: app.ID, Name: app.Name, Kind: "AutoAttendant", URL: "/app/" + app.ID})
		}
		for _, app := range cqs {
			links = append(links, appLink{ID: app.ID, Name: app.Name, Kind: "CallQueue", URL: "/app/" + app.ID})
		}
		c.JSON(http.StatusOK, gin.H{"apps": links})
	}
}

// buildResult walks one app for a request-scoped diagram.
func buildResult(c *gin.Context, dir msteams.Directory) (*flow.Result, bool) {
	driver := flow.NewDriver(dir, formatterOptions(), logger)
	result, err := driver.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return nil, false
	}
	if result.Visited == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("voice app %q not found", c.Param("id"))})
		return nil, false
	}
	return result, true
}

// handlePreview renders the HTML preview page for one voice app.
func handlePreview(dir msteams.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, ok := buildResult(c, dir)
		if !ok {
			return
		}
		diagram := newSerializer(false, nil).Serialize(result.Fragments)

		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		err := mermaid.WriteHTML(c.Writer, mermaid.HTMLPage{
			Title:     "Call Flow " + c.Param("id"),
			Diagram:   diagram,
			Theme:     currentTheme(),
			Generated: time.Now().Format(time.RFC1123),
		})
		if err != nil {
			logger.Error("preview render failed", "error", err.Error())
		}
	}
}

// handleDiagram serves the raw Mermaid source.
func handleDiagram(dir msteams.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, ok := buildResult(c, dir)
		if !ok {
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8",
			[]byte(newSerializer(false, nil).Serialize(result.Fragments)))
	}
}
