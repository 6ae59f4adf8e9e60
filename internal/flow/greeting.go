// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flow

import (
	"github.com/voicegraph/callflow/internal/export"
	"github.com/voicegraph/callflow/internal/msteams"
)

// Truncation and rendering constants for greeting labels.
const (
	// DefaultTruncateAt is the default label length limit.
	DefaultTruncateAt = 64

	// ellipsis is appended to truncated labels.
	ellipsis = "…"

	// extensionTail is how many trailing characters a truncated file
	// name keeps, preserving the presumed extension.
	extensionTail = 4
)

// FormatterOptions controls greeting label rendering and asset export.
type FormatterOptions struct {
	// ShowText includes the literal spoken text of TTS greetings.
	ShowText bool

	// ShowFilename includes the upload name of audio greetings.
	ShowFilename bool

	// TruncateAt limits label length; zero means DefaultTruncateAt.
	TruncateAt int

	// ExportAssets emits export tasks alongside labels. Truncation
	// never affects exported content.
	ExportAssets bool
}

// Formatter renders greetings and announcements into display labels
// plus optional export task descriptors. The Formatter itself performs
// no I/O.
type Formatter struct {
	opts FormatterOptions
}

// NewFormatter creates a greeting formatter.
func NewFormatter(opts FormatterOptions) *Formatter {
	if opts.TruncateAt <= 0 {
		opts.TruncateAt = DefaultTruncateAt
	}
	return &Formatter{opts: opts}
}

// Format renders one prompt. stageKey keys the export task to
// (app identity, stage, counter) and must be the node id the greeting
// is rendered under. An unconfigured prompt yields the label "None"
// and no task.
func (f *Formatter) Format(prompt *msteams.Prompt, stageKey string) (string, *export.Task) {
	if !prompt.IsConfigured() {
		return "None", nil
	}

	switch prompt.ActiveType {
	case msteams.PromptTypeTextToSpeech:
		label := "Text to Speech"
		if f.opts.ShowText {
			label = "TTS: " + f.truncateText(SanitizeLabel(prompt.TextToSpeech))
		}
		if f.opts.ExportAssets {
			return label, &export.Task{
				Key:  stageKey,
				Kind: export.KindText,
				Text: prompt.TextToSpeech, // always untruncated
			}
		}
		return label, nil

	case msteams.PromptTypeAudioFile:
		label := "Audio File"
		if f.opts.ShowFilename && prompt.AudioFile.FileName != "" {
			label = "Audio: " + f.truncateFileName(SanitizeLabel(prompt.AudioFile.FileName))
		}
		if f.opts.ExportAssets {
			return label, &export.Task{
				Key:         stageKey,
				Kind:        export.KindAudio,
				FileName:    prompt.AudioFile.FileName,
				DownloadURI: prompt.AudioFile.DownloadURI,
			}
		}
		return label, nil

	default:
		return "None", nil
	}
}

// truncateText clips free text to the configured limit, appending an
// ellipsis when clipped.
func (f *Formatter) truncateText(s string) string {
	runes := []rune(s)
	if len(runes) <= f.opts.TruncateAt {
		return s
	}
	return string(runes[:f.opts.TruncateAt]) + ellipsis
}

// truncateFileName clips a file name but keeps the trailing characters
// as the presumed extension, so "verylongname.wav" truncates to
// "verylo….wav" rather than losing the extension.
func (f *Formatter) truncateFileName(s string) string {
	runes := []rune(s)
	if len(runes) <= f.opts.TruncateAt {
		return s
	}
	if f.opts.TruncateAt <= extensionTail {
		return string(runes[:f.opts.TruncateAt]) + ellipsis
	}
	head := runes[:f.opts.TruncateAt-extensionTail]
	tail := runes[len(runes)-extensionTail:]
	return string(head) + ellipsis + string(tail)
}

// GreetingNode renders a greeting node for a stage, recording the
// export task on the accumulator when one is produced. Returns false
// when the prompt is unconfigured: no node is emitted and no dangling
// edge may be drawn.
func (f *Formatter) GreetingNode(acc *Accumulator, prompt *msteams.Prompt, nodeID, prefix string) (Node, bool) {
	if !prompt.IsConfigured() {
		return Node{}, false
	}
	label, task := f.Format(prompt, nodeID)
	if task != nil {
		acc.AddAsset(nodeID, *task)
	}
	return Node{ID: nodeID, Label: prefix + " <br> " + label, Shape: ShapeRound, Class: "greeting"}, true
}
