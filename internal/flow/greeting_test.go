// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicegraph/callflow/internal/export"
	"github.com/voicegraph/callflow/internal/msteams"
)

func ttsPrompt(text string) *msteams.Prompt {
	return &msteams.Prompt{ActiveType: msteams.PromptTypeTextToSpeech, TextToSpeech: text}
}

func audioPrompt(name string) *msteams.Prompt {
	return &msteams.Prompt{
		ActiveType: msteams.PromptTypeAudioFile,
		AudioFile:  &msteams.AudioFilePrompt{ID: "af-1", FileName: name, DownloadURI: "https://example.test/" + name},
	}
}

func TestFormatterFormat(t *testing.T) {
	t.Run("unconfigured prompt renders None", func(t *testing.T) {
		f := NewFormatter(FormatterOptions{ShowText: true})

		label, task := f.Format(nil, "k")
		assert.Equal(t, "None", label)
		assert.Nil(t, task)

		label, task = f.Format(&msteams.Prompt{ActiveType: msteams.PromptTypeNone}, "k")
		assert.Equal(t, "None", label)
		assert.Nil(t, task)
	})

	t.Run("tts text hidden by default", func(t *testing.T) {
		f := NewFormatter(FormatterOptions{})
		label, _ := f.Format(ttsPrompt("Welcome to support"), "k")
		assert.Equal(t, "Text to Speech", label)
	})

	t.Run("tts truncation appends ellipsis", func(t *testing.T) {
		f := NewFormatter(FormatterOptions{ShowText: true, TruncateAt: 5})
		label, _ := f.Format(ttsPrompt("Hello World"), "k")
		assert.Equal(t, "TTS: Hello…", label)
	})

	t.Run("tts below limit untouched", func(t *testing.T) {
		f := NewFormatter(FormatterOptions{ShowText: true, TruncateAt: 64})
		label, _ := f.Format(ttsPrompt("Hello"), "k")
		assert.Equal(t, "TTS: Hello", label)
	})

	t.Run("export task carries untruncated text", func(t *testing.T) {
		f := NewFormatter(FormatterOptions{ShowText: true, TruncateAt: 5, ExportAssets: true})
		label, task := f.Format(ttsPrompt("Hello World"), "defaultGreeting-aa1")

		assert.Equal(t, "TTS: Hello…", label)
		require.NotNil(t, task)
		assert.Equal(t, "defaultGreeting-aa1", task.Key)
		assert.Equal(t, export.KindText, task.Kind)
		assert.Equal(t, "Hello World", task.Text)
	})

	t.Run("audio filename truncation keeps extension", func(t *testing.T) {
		f := NewFormatter(FormatterOptions{ShowFilename: true, TruncateAt: 10})
		label, _ := f.Format(audioPrompt("verylongname.wav"), "k")
		assert.Equal(t, "Audio: verylo….wav", label)
	})

	t.Run("audio filename below limit untouched", func(t *testing.T) {
		f := NewFormatter(FormatterOptions{ShowFilename: true, TruncateAt: 64})
		label, _ := f.Format(audioPrompt("hold.wav"), "k")
		assert.Equal(t, "Audio: hold.wav", label)
	})

	t.Run("audio export task carries download uri", func(t *testing.T) {
		f := NewFormatter(FormatterOptions{ExportAssets: true})
		_, task := f.Format(audioPrompt("hold.wav"), "cqGreeting-q1")

		require.NotNil(t, task)
		assert.Equal(t, export.KindAudio, task.Kind)
		assert.Equal(t, "hold.wav", task.FileName)
		assert.Equal(t, "https://example.test/hold.wav", task.DownloadURI)
	})
}

func TestGreetingNode(t *testing.T) {
	t.Run("unconfigured emits no node", func(t *testing.T) {
		acc := NewAccumulator()
		f := NewFormatter(FormatterOptions{})

		_, ok := f.GreetingNode(acc, nil, "defaultGreeting-aa1", "Greeting")
		assert.False(t, ok)
		assert.Empty(t, acc.Assets())
	})

	t.Run("configured emits node and records asset", func(t *testing.T) {
		acc := NewAccumulator()
		f := NewFormatter(FormatterOptions{ShowText: true, ExportAssets: true})

		node, ok := f.GreetingNode(acc, ttsPrompt("Hi"), "defaultGreeting-aa1", "Greeting")
		require.True(t, ok)
		assert.Equal(t, "defaultGreeting-aa1", node.ID)
		assert.Equal(t, "Greeting <br> TTS: Hi", node.Label)
		assert.Equal(t, ShapeRound, node.Shape)

		assets := acc.Assets()
		require.Len(t, assets, 1)
		assert.Equal(t, "defaultGreeting-aa1", assets[0].NodeID)
	})
}
