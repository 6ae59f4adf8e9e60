// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package export persists greeting assets (recorded audio, TTS text)
// referenced by a generated call-flow diagram.
//
// The graph builder never performs I/O itself: the greeting formatter
// emits Task descriptors and the caller hands them to a Sink after the
// build. Export failures are warnings; a broken asset never aborts the
// diagram.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voicegraph/callflow/pkg/logging"
)

// TaskKind distinguishes audio-byte exports from text exports.
type TaskKind int

const (
	// KindAudio writes the raw bytes of a recorded greeting.
	KindAudio TaskKind = iota

	// KindText writes the untruncated text of a TTS greeting.
	KindText
)

// Task describes one pending asset export. Key is derived from
// (app identity, stage, counter) by the greeting formatter and doubles
// as the node-id used for diagram click annotations.
type Task struct {
	// Key uniquely identifies the asset within one build.
	Key string

	// Kind selects the payload field.
	Kind TaskKind

	// FileName is the original upload name for audio assets.
	FileName string

	// Text is the untruncated TTS content for KindText tasks.
	Text string

	// Audio is the raw payload for KindAudio tasks. May be empty when
	// the tenant returned only a download URI.
	Audio []byte

	// DownloadURI is where the audio can be fetched when Audio is empty.
	DownloadURI string
}

// OutputName returns the sanitized file name the task is written under.
// Audio tasks without a payload persist as a .uri pointer file.
func (t Task) OutputName() string {
	var name string
	switch {
	case t.Kind == KindText:
		name = t.Key + ".txt"
	case t.FileName != "":
		name = t.Key + "_" + t.FileName
	default:
		name = t.Key + ".wav"
	}
	if t.Kind == KindAudio && len(t.Audio) == 0 && t.DownloadURI != "" {
		name += ".uri"
	}
	return sanitizeFileName(name)
}

// Sink consumes export tasks. Implementations must treat failures as
// non-fatal and may be called with tasks in any order.
type Sink interface {
	Write(ctx context.Context, task Task) error
}

// FileSink writes assets under a base directory on the local disk.
type FileSink struct {
	dir    string
	logger *logging.Logger
}

// NewFileSink creates a sink rooted at dir, creating it if needed.
func NewFileSink(dir string, logger *logging.Logger) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("export: directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("export: creating %s: %w", dir, err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FileSink{dir: dir, logger: logger}, nil
}

// Write persists one task. Text tasks are written verbatim; audio tasks
// with no payload produce a .uri pointer file instead.
func (s *FileSink) Write(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dir, task.OutputName())

	var data []byte
	switch task.Kind {
	case KindText:
		data = []byte(task.Text)
	case KindAudio:
		switch {
		case len(task.Audio) > 0:
			data = task.Audio
		case task.DownloadURI != "":
			data = []byte(task.DownloadURI + "\n")
		default:
			return fmt.Errorf("export: task %s has no audio payload or URI", task.Key)
		}
	default:
		return fmt.Errorf("export: unknown task kind %d", task.Kind)
	}

	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}

	s.logger.Debug("exported asset", "key", task.Key, "path", path)
	return nil
}

// WriteAll drains all tasks, logging failures as warnings and never
// returning an error. This is the ExportError containment point.
func WriteAll(ctx context.Context, sink Sink, tasks []Task, logger *logging.Logger) {
	if logger == nil {
		logger = logging.Default()
	}
	for _, task := range tasks {
		if err := sink.Write(ctx, task); err != nil {
			logger.Warn("asset export failed", "key", task.Key, "error", err.Error())
		}
	}
}

// sanitizeFileName strips path separators and other characters that are
// unsafe in file names across platforms.
func sanitizeFileName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}

var _ Sink = (*FileSink)(nil)
