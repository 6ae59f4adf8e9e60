// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicegraph/callflow/internal/msteams"
)

func buildAA(t *testing.T, fake *msteams.Fake, aa *msteams.AutoAttendant) *Accumulator {
	t.Helper()
	fake.AddAutoAttendant(aa)
	acc := NewAccumulator()
	resolver := NewResolver(fake, nil)
	builder := NewAutoAttendantBuilder(fake, resolver, NewFormatter(FormatterOptions{ShowText: true}), nil)
	require.NoError(t, builder.Build(context.Background(), acc, aa))
	return acc
}

func disconnectOnly() msteams.CallFlow {
	return msteams.CallFlow{
		ID:   "cf-default",
		Menu: msteams.Menu{Options: []msteams.MenuOption{{Action: msteams.ActionDisconnect}}},
	}
}

func TestAutoAttendantMinimal(t *testing.T) {
	// No holidays, no after-hours, no greeting, single disconnect
	// option: entry connects straight to the terminal, no decision
	// diamonds anywhere.
	acc := buildAA(t, msteams.NewFake(), &msteams.AutoAttendant{
		VoiceApp:    msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
		DefaultFlow: disconnectOnly(),
	})

	fragments := acc.Fragments()
	_, ok := findEdge(fragments, NodeID("entry", "aa-1"), IndexedNodeID("defaultDisconnect", "aa-1", 0))
	assert.True(t, ok, "entry must link directly to the disconnect terminal")

	assert.False(t, acc.HasNode(NodeID("holidayCheck", "aa-1")))
	assert.False(t, acc.HasNode(NodeID("businessHoursCheck", "aa-1")))
	assert.False(t, acc.HasNode(NodeID("defaultMenu", "aa-1")), "no IVR diamond without menu")
}

func TestAutoAttendantGreeting(t *testing.T) {
	aa := &msteams.AutoAttendant{
		VoiceApp: msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
		DefaultFlow: msteams.CallFlow{
			ID:        "cf-default",
			Greetings: []msteams.Prompt{*ttsPrompt("Welcome")},
			Menu:      msteams.Menu{Options: []msteams.MenuOption{{Action: msteams.ActionDisconnect}}},
		},
	}
	acc := buildAA(t, msteams.NewFake(), aa)

	greetingID := NodeID("defaultGreeting", "aa-1")
	_, ok := findEdge(acc.Fragments(), NodeID("entry", "aa-1"), greetingID)
	require.True(t, ok)
	_, ok = findEdge(acc.Fragments(), greetingID, IndexedNodeID("defaultDisconnect", "aa-1", 0))
	assert.True(t, ok)
}

func TestAutoAttendantIvrFanOut(t *testing.T) {
	fake := msteams.NewFake().
		AddUser(&msteams.User{ID: "u-1", DisplayName: "Dana Ops"}).
		AddUser(&msteams.User{ID: "u-op", DisplayName: "Switchboard"})

	aa := &msteams.AutoAttendant{
		VoiceApp:             msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
		Operator:             &msteams.TransferTarget{Type: msteams.TargetTypeUser, ID: "u-op"},
		VoiceResponseEnabled: true,
		DefaultFlow: msteams.CallFlow{
			ID: "cf-default",
			Menu: msteams.Menu{
				Prompt: ttsPrompt("Press one for support"),
				Options: []msteams.MenuOption{
					{
						DtmfResponse:   "Tone1",
						VoiceResponses: []string{"Support"},
						Action:         msteams.ActionTransferToTarget,
						CallTarget:     &msteams.TransferTarget{Type: msteams.TargetTypeUser, ID: "u-1"},
					},
					{DtmfResponse: "Tone0", Action: msteams.ActionTransferToOperator},
					{DtmfResponse: "TonePound", Action: msteams.ActionDisconnect},
				},
			},
		},
	}
	acc := buildAA(t, fake, aa)
	fragments := acc.Fragments()

	menuID := NodeID("defaultMenu", "aa-1")
	menu, ok := findNode(fragments, menuID)
	require.True(t, ok)
	assert.Equal(t, "Key Press", menu.Label)
	assert.Equal(t, ShapeDecision, menu.Shape)

	// IVR greeting feeds the diamond.
	_, ok = findEdge(fragments, NodeID("defaultIvrGreeting", "aa-1"), menuID)
	assert.True(t, ok)

	edge, ok := findEdge(fragments, menuID, NodeID("user", "u-1"))
	require.True(t, ok)
	assert.Equal(t, "1 / Support", edge.Label, "DTMF key plus voice response")

	edge, ok = findEdge(fragments, menuID, NodeID("user", "u-op"))
	require.True(t, ok)
	assert.Equal(t, "0 Operator", edge.Label)

	edge, ok = findEdge(fragments, menuID, IndexedNodeID("defaultDisconnect", "aa-1", 2))
	require.True(t, ok)
	assert.Equal(t, "#", edge.Label)
}

func TestAutoAttendantOperatorWithoutIvr(t *testing.T) {
	// Single operator option and no menu prompt: no Key Press diamond,
	// and the edge label is "Operator" with no leading space.
	fake := msteams.NewFake().
		AddUser(&msteams.User{ID: "u-op", DisplayName: "Switchboard"})

	aa := &msteams.AutoAttendant{
		VoiceApp: msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
		Operator: &msteams.TransferTarget{Type: msteams.TargetTypeUser, ID: "u-op"},
		DefaultFlow: msteams.CallFlow{
			ID:   "cf-default",
			Menu: msteams.Menu{Options: []msteams.MenuOption{{Action: msteams.ActionTransferToOperator}}},
		},
	}
	acc := buildAA(t, fake, aa)

	assert.False(t, acc.HasNode(NodeID("defaultMenu", "aa-1")))
	edge, ok := findEdge(acc.Fragments(), NodeID("entry", "aa-1"), NodeID("user", "u-op"))
	require.True(t, ok)
	assert.Equal(t, "Operator", edge.Label)
}

func TestAutoAttendantAnnouncementLoopsBack(t *testing.T) {
	aa := &msteams.AutoAttendant{
		VoiceApp: msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
		DefaultFlow: msteams.CallFlow{
			ID: "cf-default",
			Menu: msteams.Menu{
				Prompt: ttsPrompt("Menu"),
				Options: []msteams.MenuOption{
					{DtmfResponse: "Tone1", Action: msteams.ActionAnnouncement, Prompt: ttsPrompt("Opening hours are nine to five")},
					{DtmfResponse: "Tone2", Action: msteams.ActionDisconnect},
				},
			},
		},
	}
	acc := buildAA(t, msteams.NewFake(), aa)

	announcementID := IndexedNodeID("defaultAnnouncement", "aa-1", 0)
	_, ok := findEdge(acc.Fragments(), announcementID, NodeID("defaultIvrGreeting", "aa-1"))
	assert.True(t, ok, "announcement must return to the IVR greeting")
}

func TestAutoAttendantSharedVoicemailDisclaimer(t *testing.T) {
	fake := msteams.NewFake().AddGroup(&msteams.Group{ID: "g-1", DisplayName: "Support Mailbox"})

	t.Run("disclaimer node precedes the mailbox", func(t *testing.T) {
		aa := &msteams.AutoAttendant{
			VoiceApp: msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
			DefaultFlow: msteams.CallFlow{
				ID: "cf-default",
				Menu: msteams.Menu{Options: []msteams.MenuOption{{
					Action:     msteams.ActionTransferToTarget,
					CallTarget: &msteams.TransferTarget{Type: msteams.TargetTypeSharedVoicemail, ID: "g-1"},
				}}},
			},
		}
		acc := buildAA(t, fake, aa)

		systemID := IndexedNodeID("defaultSystemGreeting", "aa-1", 0)
		system, ok := findNode(acc.Fragments(), systemID)
		require.True(t, ok)
		assert.Equal(t, "MS System Message", system.Label)

		_, ok = findEdge(acc.Fragments(), systemID, NodeID("voicemail", "g-1"))
		assert.True(t, ok)
	})

	t.Run("suppressed disclaimer links directly", func(t *testing.T) {
		aa := &msteams.AutoAttendant{
			VoiceApp: msteams.VoiceApp{ID: "aa-2", Name: "Night Line"},
			DefaultFlow: msteams.CallFlow{
				ID: "cf-default",
				Menu: msteams.Menu{Options: []msteams.MenuOption{{
					Action: msteams.ActionTransferToTarget,
					CallTarget: &msteams.TransferTarget{
						Type: msteams.TargetTypeSharedVoicemail, ID: "g-1", SuppressSystemGreeting: true,
					},
				}}},
			},
		}
		acc := buildAA(t, fake, aa)

		assert.False(t, acc.HasNode(IndexedNodeID("defaultSystemGreeting", "aa-2", 0)))
		_, ok := findEdge(acc.Fragments(), NodeID("entry", "aa-2"), NodeID("voicemail", "g-1"))
		assert.True(t, ok)
	})
}

func TestAutoAttendantUnresolvedTargetPlaceholder(t *testing.T) {
	aa := &msteams.AutoAttendant{
		VoiceApp: msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
		DefaultFlow: msteams.CallFlow{
			ID: "cf-default",
			Menu: msteams.Menu{Options: []msteams.MenuOption{{
				Action:     msteams.ActionTransferToTarget,
				CallTarget: &msteams.TransferTarget{Type: msteams.TargetTypeApplicationEndpoint, ID: "ra-orphan"},
			}}},
		},
	}
	acc := buildAA(t, msteams.NewFake(), aa)

	placeholder, ok := findNode(acc.Fragments(), IndexedNodeID("defaultUnresolved", "aa-1", 0))
	require.True(t, ok, "resolution failure must be contained as a placeholder")
	assert.Equal(t, "Unresolved Target", placeholder.Label)
	assert.Equal(t, "warning", placeholder.Class)
}

func TestAutoAttendantHolidayAndAfterHours(t *testing.T) {
	aa := &msteams.AutoAttendant{
		VoiceApp:    msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
		DefaultFlow: disconnectOnly(),
		CallFlows: []msteams.CallFlow{
			{ID: "cf-ah", Menu: msteams.Menu{Options: []msteams.MenuOption{{Action: msteams.ActionDisconnect}}}},
			{ID: "cf-hol", Greetings: []msteams.Prompt{*ttsPrompt("Closed for the holidays")},
				Menu: msteams.Menu{Options: []msteams.MenuOption{{Action: msteams.ActionDisconnect}}}},
		},
		Schedules: []msteams.Schedule{
			{ID: "sched-hours", Type: msteams.ScheduleTypeWeekly, Weekly: &msteams.WeeklySchedule{
				Monday: []msteams.TimeRange{{Start: "09:00:00", End: "17:00:00"}},
			}},
			{ID: "sched-xmas", Name: "Christmas", Type: msteams.ScheduleTypeFixed, DateTimeRanges: []msteams.DateTimeRange{
				{Start: "2025-12-24 00:00", End: "2025-12-27 00:00"},
			}},
		},
		Associations: []msteams.CallHandlingAssociation{
			{Type: msteams.AssociationAfterHours, Enabled: true, ScheduleID: "sched-hours", CallFlowID: "cf-ah"},
			{Type: msteams.AssociationHoliday, Enabled: true, ScheduleID: "sched-xmas", CallFlowID: "cf-hol"},
		},
	}
	acc := buildAA(t, msteams.NewFake(), aa)
	fragments := acc.Fragments()

	holidayID := NodeID("holidayCheck", "aa-1")
	hoursID := NodeID("businessHoursCheck", "aa-1")

	// Holiday check runs first, business hours second.
	_, ok := findEdge(fragments, NodeID("entry", "aa-1"), holidayID)
	require.True(t, ok)

	edge, ok := findEdge(fragments, holidayID, NodeID("subgraphHolidays", "aa-1"))
	require.True(t, ok)
	assert.Equal(t, "Yes", edge.Label)

	edge, ok = findEdge(fragments, holidayID, hoursID)
	require.True(t, ok)
	assert.Equal(t, "No", edge.Label)

	hours, ok := findNode(fragments, hoursID)
	require.True(t, ok)
	assert.Contains(t, hours.Label, "During Business Hours?")
	assert.Contains(t, hours.Label, "Monday Hours: 09:00 - 17:00")

	// The two flows fan out of the hours diamond with opposite labels.
	edge, ok = findEdge(fragments, hoursID, IndexedNodeID("defaultDisconnect", "aa-1", 0))
	require.True(t, ok)
	assert.Equal(t, "Yes", edge.Label)

	edge, ok = findEdge(fragments, hoursID, IndexedNodeID("afterHoursDisconnect", "aa-1", 0))
	require.True(t, ok)
	assert.Equal(t, "No", edge.Label)

	// Holiday subgraph contents: schedule trapezoid, holiday greeting,
	// terminating action.
	schedule, ok := findNode(fragments, IndexedNodeID("holidaySchedule", "aa-1", 0))
	require.True(t, ok)
	assert.Contains(t, schedule.Label, "Christmas")
	assert.Contains(t, schedule.Label, "2025-12-24 00:00 - 2025-12-27 00:00")
	assert.Equal(t, ShapeSchedule, schedule.Shape)

	_, ok = findEdge(fragments, IndexedNodeID("holidaySchedule", "aa-1", 0), NodeID("holiday0Greeting", "aa-1"))
	assert.True(t, ok)
}

func TestAutoAttendantAlwaysOpenSuppressesAfterHours(t *testing.T) {
	aa := &msteams.AutoAttendant{
		VoiceApp:    msteams.VoiceApp{ID: "aa-1", Name: "Main Line"},
		DefaultFlow: disconnectOnly(),
		CallFlows: []msteams.CallFlow{
			{ID: "cf-ah", Menu: msteams.Menu{Options: []msteams.MenuOption{{Action: msteams.ActionDisconnect}}}},
		},
		Schedules: []msteams.Schedule{
			{ID: "sched-always", Type: msteams.ScheduleTypeWeekly, Weekly: alwaysOpenWeekly()},
		},
		Associations: []msteams.CallHandlingAssociation{
			{Type: msteams.AssociationAfterHours, Enabled: true, ScheduleID: "sched-always", CallFlowID: "cf-ah"},
		},
	}
	acc := buildAA(t, msteams.NewFake(), aa)

	assert.False(t, acc.HasNode(NodeID("businessHoursCheck", "aa-1")),
		"always-open schedule means no after-hours handling")
	_, ok := findEdge(acc.Fragments(), NodeID("entry", "aa-1"), IndexedNodeID("defaultDisconnect", "aa-1", 0))
	assert.True(t, ok)
}
