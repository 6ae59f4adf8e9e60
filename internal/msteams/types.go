// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package msteams provides the read-only lookup adapter for a Teams
// tenant's voice-routing configuration.
//
// The package defines the tenant data model (auto attendants, call
// queues, schedules, prompts, transfer targets) as immutable snapshots,
// together with the Directory interface the flow builders consume.
// Snapshots are never mutated by the graph builder.
package msteams

import "strings"

// VoiceAppKind distinguishes the two voice application types a resource
// account can point at.
type VoiceAppKind string

const (
	KindAutoAttendant VoiceAppKind = "AutoAttendant"
	KindCallQueue     VoiceAppKind = "CallQueue"
)

// VoiceApp is the identity snapshot of a voice application: enough to
// schedule it for expansion and label its entry node.
type VoiceApp struct {
	// ID is the tenant-unique identity of the application.
	ID string `json:"id"`

	// Name is the display name configured in the tenant.
	Name string `json:"name"`

	// Kind is AutoAttendant or CallQueue.
	Kind VoiceAppKind `json:"kind"`

	// PhoneNumbers holds the numbers of the associated resource accounts,
	// in tel: URI form as returned by the tenant.
	PhoneNumbers []string `json:"phoneNumbers,omitempty"`
}

// TargetType tags the raw transfer-target reference found in tenant
// configuration.
type TargetType string

const (
	TargetTypeUser                TargetType = "User"
	TargetTypeApplicationEndpoint TargetType = "ApplicationEndpoint"
	TargetTypeExternalPstn        TargetType = "ExternalPstn"
	TargetTypeSharedVoicemail     TargetType = "SharedVoicemail"
)

// TransferTarget is the raw transfer-target reference as stored in the
// tenant: a type tag plus an opaque id (or a phone number for PSTN).
type TransferTarget struct {
	Type TargetType `json:"type"`

	// ID is the directory object id (User, ApplicationEndpoint,
	// SharedVoicemail) or the dialable number (ExternalPstn).
	ID string `json:"id"`

	// SuppressSystemGreeting disables the built-in system disclaimer
	// played before depositing into a shared voicemail box.
	SuppressSystemGreeting bool `json:"suppressSystemGreeting,omitempty"`
}

// PromptType tags the active kind of a configured prompt.
type PromptType string

const (
	PromptTypeNone         PromptType = "None"
	PromptTypeAudioFile    PromptType = "AudioFile"
	PromptTypeTextToSpeech PromptType = "TextToSpeech"
)

// AudioFilePrompt describes an uploaded audio asset.
type AudioFilePrompt struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	DownloadURI string `json:"downloadUri,omitempty"`
}

// Prompt is a greeting or announcement: none, a recorded audio file, or
// a synthesized text-to-speech phrase.
type Prompt struct {
	ActiveType   PromptType       `json:"activeType"`
	TextToSpeech string           `json:"textToSpeech,omitempty"`
	AudioFile    *AudioFilePrompt `json:"audioFile,omitempty"`
}

// IsConfigured reports whether the prompt actually plays anything.
func (p *Prompt) IsConfigured() bool {
	if p == nil {
		return false
	}
	switch p.ActiveType {
	case PromptTypeAudioFile:
		return p.AudioFile != nil
	case PromptTypeTextToSpeech:
		return p.TextToSpeech != ""
	default:
		return false
	}
}

// MenuAction is the action taken when a menu option is selected.
type MenuAction string

const (
	ActionTransferToTarget   MenuAction = "TransferCallToTarget"
	ActionTransferToOperator MenuAction = "TransferCallToOperator"
	ActionAnnouncement       MenuAction = "Announcement"
	ActionDisconnect         MenuAction = "DisconnectCall"
)

// MenuOption is one IVR choice: a DTMF key (absent when the flow has no
// menu), optional voice-response phrases, and the action to take.
type MenuOption struct {
	DtmfResponse   string          `json:"dtmfResponse,omitempty"`
	VoiceResponses []string        `json:"voiceResponses,omitempty"`
	Action         MenuAction      `json:"action"`
	CallTarget     *TransferTarget `json:"callTarget,omitempty"`
	Prompt         *Prompt         `json:"prompt,omitempty"`
}

// DtmfKey returns the bare key ("0".."9", "*", "#") for a Tone-prefixed
// DTMF response, or the raw value when it has no Tone prefix.
func (o MenuOption) DtmfKey() string {
	key := strings.TrimPrefix(o.DtmfResponse, "Tone")
	switch key {
	case "Star":
		return "*"
	case "Pound":
		return "#"
	default:
		return key
	}
}

// Menu is the IVR menu of a call flow.
type Menu struct {
	Name    string       `json:"name,omitempty"`
	Prompt  *Prompt      `json:"prompt,omitempty"`
	Options []MenuOption `json:"options"`
}

// CallFlow is a named call-handling stage of an auto attendant: its
// greetings plus the menu that follows.
type CallFlow struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Greetings []Prompt `json:"greetings,omitempty"`
	Menu      Menu     `json:"menu"`
}

// Greeting returns the first configured greeting of the flow, or nil.
func (f *CallFlow) Greeting() *Prompt {
	for i := range f.Greetings {
		if f.Greetings[i].IsConfigured() {
			return &f.Greetings[i]
		}
	}
	return nil
}

// TimeRange is one open interval within a weekday, "HH:MM:SS" clock
// strings in the schedule's timezone.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklySchedule holds the per-weekday open ranges of a recurrent
// schedule. A nil/empty slice means closed all day.
type WeeklySchedule struct {
	Monday    []TimeRange `json:"monday,omitempty"`
	Tuesday   []TimeRange `json:"tuesday,omitempty"`
	Wednesday []TimeRange `json:"wednesday,omitempty"`
	Thursday  []TimeRange `json:"thursday,omitempty"`
	Friday    []TimeRange `json:"friday,omitempty"`
	Saturday  []TimeRange `json:"saturday,omitempty"`
	Sunday    []TimeRange `json:"sunday,omitempty"`
}

// DateTimeRange is one absolute interval of a fixed (holiday) schedule.
type DateTimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ScheduleType distinguishes recurrent business-hours schedules from
// fixed holiday date ranges.
type ScheduleType string

const (
	ScheduleTypeWeekly ScheduleType = "WeeklyRecurrence"
	ScheduleTypeFixed  ScheduleType = "Fixed"
)

// Schedule is a named schedule referenced by call-handling associations.
type Schedule struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	Type           ScheduleType    `json:"type"`
	TimeZoneID     string          `json:"timeZoneId,omitempty"`
	Weekly         *WeeklySchedule `json:"weekly,omitempty"`
	DateTimeRanges []DateTimeRange `json:"dateTimeRanges,omitempty"`
}

// AssociationType tags a call-handling association as holiday or
// after-hours handling.
type AssociationType string

const (
	AssociationHoliday    AssociationType = "Holiday"
	AssociationAfterHours AssociationType = "AfterHours"
)

// CallHandlingAssociation binds a schedule to the call flow that handles
// calls while the schedule is in effect.
type CallHandlingAssociation struct {
	Type       AssociationType `json:"type"`
	Enabled    bool            `json:"enabled"`
	ScheduleID string          `json:"scheduleId"`
	CallFlowID string          `json:"callFlowId"`
}

// AutoAttendant is the full configuration snapshot of one auto
// attendant.
type AutoAttendant struct {
	VoiceApp

	LanguageID   string          `json:"languageId,omitempty"`
	TimeZoneID   string          `json:"timeZoneId,omitempty"`
	Operator     *TransferTarget `json:"operator,omitempty"`
	DefaultFlow  CallFlow        `json:"defaultCallFlow"`
	CallFlows    []CallFlow      `json:"callFlows,omitempty"`
	Schedules    []Schedule      `json:"schedules,omitempty"`
	Associations []CallHandlingAssociation `json:"callHandlingAssociations,omitempty"`

	// VoiceResponseEnabled allows callers to speak menu options instead
	// of pressing keys.
	VoiceResponseEnabled bool `json:"voiceResponseEnabled,omitempty"`

	// ApplicationInstanceIDs are the resource-account object ids bound
	// to this attendant; used for ApplicationEndpoint ownership lookup.
	ApplicationInstanceIDs []string `json:"applicationInstanceIds,omitempty"`
}

// ScheduleByID returns the schedule with the given id, or nil.
func (a *AutoAttendant) ScheduleByID(id string) *Schedule {
	for i := range a.Schedules {
		if a.Schedules[i].ID == id {
			return &a.Schedules[i]
		}
	}
	return nil
}

// CallFlowByID returns the call flow with the given id, or nil.
func (a *AutoAttendant) CallFlowByID(id string) *CallFlow {
	for i := range a.CallFlows {
		if a.CallFlows[i].ID == id {
			return &a.CallFlows[i]
		}
	}
	return nil
}

// RoutingMethod is the call-distribution strategy of a queue.
type RoutingMethod string

const (
	RoutingAttendant  RoutingMethod = "Attendant"
	RoutingSerial     RoutingMethod = "Serial"
	RoutingRoundRobin RoutingMethod = "RoundRobin"
	RoutingLongestIdle RoutingMethod = "LongestIdle"
)

// QueueAction is the overflow/timeout fallback action of a queue.
type QueueAction string

const (
	QueueActionDisconnect      QueueAction = "Disconnect"
	QueueActionForward         QueueAction = "Forward"
	QueueActionVoicemail       QueueAction = "Voicemail"
	QueueActionSharedVoicemail QueueAction = "SharedVoicemail"
)

// Agent is one member of a call queue roster. Roster order is the ring
// order for serial routing and must be preserved.
type Agent struct {
	ObjectID string `json:"objectId"`
	OptIn    bool   `json:"optIn"`
}

// CallQueue is the full configuration snapshot of one call queue.
type CallQueue struct {
	VoiceApp

	LanguageID    string        `json:"languageId,omitempty"`
	RoutingMethod RoutingMethod `json:"routingMethod"`

	// AgentAlertTime is how long each agent is alerted, in seconds.
	AgentAlertTime int `json:"agentAlertTime"`

	WelcomeGreeting *Prompt `json:"welcomeGreeting,omitempty"`

	// UseDefaultMusicOnHold selects the stock hold music; otherwise
	// MusicOnHoldFile plays.
	UseDefaultMusicOnHold bool             `json:"useDefaultMusicOnHold"`
	MusicOnHoldFile       *AudioFilePrompt `json:"musicOnHoldFile,omitempty"`

	ConferenceMode       bool `json:"conferenceMode"`
	AllowOptOut          bool `json:"allowOptOut"`
	PresenceBasedRouting bool `json:"presenceBasedRouting"`

	// OverflowThreshold is the active-call count that triggers the
	// overflow action.
	OverflowThreshold int             `json:"overflowThreshold"`
	OverflowAction    QueueAction     `json:"overflowAction"`
	OverflowTarget    *TransferTarget `json:"overflowTarget,omitempty"`
	OverflowGreeting  *Prompt         `json:"overflowGreeting,omitempty"`

	// TimeoutThreshold is the maximum wait in seconds before the
	// timeout action fires.
	TimeoutThreshold int             `json:"timeoutThreshold"`
	TimeoutAction    QueueAction     `json:"timeoutAction"`
	TimeoutTarget    *TransferTarget `json:"timeoutTarget,omitempty"`
	TimeoutGreeting  *Prompt         `json:"timeoutGreeting,omitempty"`

	// Agents is the resolved roster in tenant order.
	Agents []Agent `json:"agents,omitempty"`

	// Mutually exclusive roster sources: individual users, one or more
	// distribution lists, or a single team channel.
	UserIDs             []string `json:"userIds,omitempty"`
	DistributionListIDs []string `json:"distributionListIds,omitempty"`
	TeamID              string   `json:"teamId,omitempty"`
	ChannelID           string   `json:"channelId,omitempty"`
	ChannelName         string   `json:"channelName,omitempty"`

	ApplicationInstanceIDs []string `json:"applicationInstanceIds,omitempty"`
}

// User is a directory user snapshot.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`

	// LineURI is the user's direct number in tel: form, if assigned.
	LineURI string `json:"lineUri,omitempty"`
}

// Group is a directory group snapshot (distribution list or team).
type Group struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
