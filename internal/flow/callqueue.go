// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/voicegraph/callflow/internal/msteams"
	"github.com/voicegraph/callflow/pkg/logging"
)

// CallQueueBuilder expands one call queue's overflow/timeout/agent
// routing structure into a single fragment. Unlike the auto attendant
// builder this is a single pass, not a multi-stage state machine.
type CallQueueBuilder struct {
	dir       msteams.Directory
	resolver  *Resolver
	formatter *Formatter
	logger    *logging.Logger
}

// NewCallQueueBuilder creates a call queue flow builder.
func NewCallQueueBuilder(dir msteams.Directory, resolver *Resolver, formatter *Formatter, logger *logging.Logger) *CallQueueBuilder {
	if logger == nil {
		logger = logging.Default()
	}
	return &CallQueueBuilder{
		dir:       dir,
		resolver:  resolver,
		formatter: formatter,
		logger:    logger,
	}
}

// Build expands the queue into a fragment on the accumulator:
// Entry → [Greeting] → Overflow? → {overflow action | distribution
// subgraph → Connected? → {connected | timeout action}}.
func (b *CallQueueBuilder) Build(ctx context.Context, acc *Accumulator, cq *msteams.CallQueue) error {
	var frag Fragment
	frag.Title = "Call Queue " + cq.Name

	entry := EntryNode(cq.VoiceApp)
	current := entry

	if greeting, ok := b.formatter.GreetingNode(acc, cq.WelcomeGreeting, NodeID("cqGreeting", cq.ID), "Greeting"); ok {
		frag.Edge(current, greeting)
		current = greeting
	}

	overflow := Node{
		ID:    NodeID("overflow", cq.ID),
		Label: fmt.Sprintf("More than %d active calls?", cq.OverflowThreshold),
		Shape: ShapeDecision,
		Class: "decision",
	}
	frag.Edge(current, overflow)

	if err := b.renderQueueAction(ctx, acc, &frag, cq, "overflow", overflow, "Yes", cq.OverflowAction, cq.OverflowTarget); err != nil {
		return fmt.Errorf("rendering overflow action: %w", err)
	}

	// Call distribution subgraph: informational settings block plus the
	// agent roster.
	distID := NodeID("subgraphDistribution", cq.ID)
	frag.LabeledEdge(overflow, Node{ID: distID}, "No")

	frag.Add(SubgraphStart{ID: distID, Title: "Call Distribution " + SanitizeLabel(cq.Name)})
	settings := b.settingsNode(cq)
	frag.Add(NodeStmt{Node: settings})

	agentsHead, err := b.buildAgents(ctx, &frag, cq)
	if err != nil {
		return fmt.Errorf("building agent roster: %w", err)
	}
	frag.Add(SubgraphEnd{})

	connected := Node{
		ID:    NodeID("connected", cq.ID),
		Label: "Call Connected?",
		Shape: ShapeDecision,
		Class: "decision",
	}
	frag.Edge(agentsHead, connected)
	frag.LabeledEdge(connected, Node{
		ID:    NodeID("callConnected", cq.ID),
		Label: "Call Connected",
		Shape: ShapeTerminal,
		Class: "terminal",
	}, "Yes")

	timeout := Node{
		ID:    NodeID("timeout", cq.ID),
		Label: fmt.Sprintf("Timeout after %s", renderSeconds(cq.TimeoutThreshold)),
		Shape: ShapeRect,
		Class: "target",
	}
	frag.LabeledEdge(connected, timeout, "No")

	if err := b.renderQueueAction(ctx, acc, &frag, cq, "timeout", timeout, "", cq.TimeoutAction, cq.TimeoutTarget); err != nil {
		return fmt.Errorf("rendering timeout action: %w", err)
	}

	acc.AddFragment(frag)
	return nil
}

// settingsNode renders the informational CQ settings block: routing
// method, alert time, hold music, conference mode, opt-out, presence
// routing, language, timeout.
func (b *CallQueueBuilder) settingsNode(cq *msteams.CallQueue) Node {
	// A queue that opted out of the stock hold music but never uploaded
	// a file still plays the default tone.
	moh := "Default"
	if !cq.UseDefaultMusicOnHold && cq.MusicOnHoldFile != nil && cq.MusicOnHoldFile.FileName != "" {
		moh = "Custom: " + SanitizeLabel(cq.MusicOnHoldFile.FileName)
	}

	lines := []string{
		"CQ Settings",
		"Routing: " + string(cq.RoutingMethod),
		"Alert Time: " + renderSeconds(cq.AgentAlertTime),
		"Music on Hold: " + moh,
		"Conference Mode: " + yesNo(cq.ConferenceMode),
		"Agent Opt Out: " + yesNo(cq.AllowOptOut),
		"Presence Based Routing: " + yesNo(cq.PresenceBasedRouting),
	}
	if cq.LanguageID != "" {
		lines = append(lines, "TTS Language: "+SanitizeLabel(cq.LanguageID))
	}
	lines = append(lines, "Timeout: "+renderSeconds(cq.TimeoutThreshold))

	return Node{
		ID:    NodeID("cqSettings", cq.ID),
		Label: strings.Join(lines, " <br> "),
		Shape: ShapeRect,
		Class: "settings",
	}
}

// buildAgents emits the agents list block and returns the node that
// feeds the Call Connected? decision. Agents are enumerated in roster
// order; for serial routing every edge carries the agent's ring
// position 1..N, which is load-bearing and must never be sorted.
func (b *CallQueueBuilder) buildAgents(ctx context.Context, frag *Fragment, cq *msteams.CallQueue) (Node, error) {
	header := Node{
		ID:    NodeID("agentList", cq.ID),
		Label: b.agentSourceLabel(ctx, cq),
		Shape: ShapeRect,
		Class: "settings",
	}
	frag.Edge(Node{ID: NodeID("cqSettings", cq.ID)}, header)

	serial := cq.RoutingMethod == msteams.RoutingSerial
	for i, agent := range cq.Agents {
		label := "Agent"
		if user, err := b.dir.GetUser(ctx, agent.ObjectID); err == nil {
			label = SanitizeLabel(user.DisplayName)
			if user.LineURI != "" {
				label += " <br> " + NormalizePstn(user.LineURI)
			}
		} else if msteams.IsNotFound(err) {
			b.logger.Warn("agent not found in directory, labeling by id",
				"app_id", cq.ID,
				"agent_id", agent.ObjectID,
			)
			label = SanitizeLabel(agent.ObjectID)
		} else {
			return Node{}, fmt.Errorf("looking up agent %s: %w", agent.ObjectID, err)
		}
		label += " <br> Opt In: " + yesNo(agent.OptIn)

		agentNode := Node{
			ID:    IndexedNodeID("agent", cq.ID, i),
			Label: label,
			Shape: ShapeRect,
			Class: "agent",
		}
		edgeLabel := ""
		if serial {
			edgeLabel = strconv.Itoa(i + 1)
		}
		frag.LabeledEdge(header, agentNode, edgeLabel)
	}

	return header, nil
}

// agentSourceLabel summarizes the roster source: individual users, one
// or more distribution lists (named), or a single team channel. The
// sources are mutually exclusive in tenant configuration.
func (b *CallQueueBuilder) agentSourceLabel(ctx context.Context, cq *msteams.CallQueue) string {
	switch {
	case cq.ChannelID != "":
		team := cq.TeamID
		if group, err := b.dir.GetGroup(ctx, cq.TeamID); err == nil {
			team = group.DisplayName
		}
		channel := cq.ChannelName
		if channel == "" {
			channel = cq.ChannelID
		}
		return "Agents List <br> Team Channel: " + SanitizeLabel(team) + " / " + SanitizeLabel(channel)

	case len(cq.DistributionListIDs) > 0:
		names := make([]string, 0, len(cq.DistributionListIDs))
		for _, id := range cq.DistributionListIDs {
			if group, err := b.dir.GetGroup(ctx, id); err == nil {
				names = append(names, SanitizeLabel(group.DisplayName))
			} else {
				names = append(names, SanitizeLabel(id))
			}
		}
		return "Agents List <br> Distribution Groups: " + strings.Join(names, ", ")

	default:
		return "Agents List <br> Users"
	}
}

// renderQueueAction emits the three-way overflow/timeout action shape:
// Disconnect, Forward to a target, or SharedVoicemail (with the system
// disclaimer node when not suppressed).
func (b *CallQueueBuilder) renderQueueAction(ctx context.Context, acc *Accumulator, frag *Fragment, cq *msteams.CallQueue, stage string, from Node, edgeLabel string, action msteams.QueueAction, rawTarget *msteams.TransferTarget) error {
	switch action {
	case msteams.QueueActionDisconnect, "":
		frag.LabeledEdge(from, Node{
			ID:    NodeID(stage+"Disconnect", cq.ID),
			Label: "Disconnect Call",
			Shape: ShapeTerminal,
			Class: "terminal",
		}, edgeLabel)
		return nil

	case msteams.QueueActionForward, msteams.QueueActionVoicemail, msteams.QueueActionSharedVoicemail:
		target, err := b.resolver.Resolve(ctx, acc, rawTarget)
		if err != nil {
			if IsResolutionError(err) {
				b.logger.Warn("queue action target did not resolve, rendering placeholder",
					"app_id", cq.ID,
					"stage", stage,
					"error", err.Error(),
				)
				frag.LabeledEdge(from, Node{
					ID:    NodeID(stage+"Unresolved", cq.ID),
					Label: "Unresolved Target",
					Shape: ShapeRect,
					Class: "warning",
				}, edgeLabel)
				return nil
			}
			return err
		}

		current := from
		if greeting, ok := b.formatter.GreetingNode(acc, b.stageGreeting(cq, stage), NodeID(stage+"Greeting", cq.ID), "Greeting"); ok {
			frag.LabeledEdge(current, greeting, edgeLabel)
			current = greeting
			edgeLabel = ""
		}

		if target.Kind == TargetSharedVoicemail && !target.SuppressSystemGreeting {
			system := Node{
				ID:    NodeID(stage+"SystemGreeting", cq.ID),
				Label: "MS System Message",
				Shape: ShapeRound,
				Class: "greeting",
			}
			frag.LabeledEdge(current, system, edgeLabel)
			frag.Edge(system, target.Node())
			return nil
		}
		frag.LabeledEdge(current, target.Node(), edgeLabel)
		return nil

	default:
		b.logger.Warn("unknown queue action, rendering disconnect",
			"app_id", cq.ID,
			"stage", stage,
			"action", string(action),
		)
		frag.LabeledEdge(from, Node{
			ID:    NodeID(stage+"Disconnect", cq.ID),
			Label: "Disconnect Call",
			Shape: ShapeTerminal,
			Class: "terminal",
		}, edgeLabel)
		return nil
	}
}

// stageGreeting returns the shared-voicemail greeting configured for
// the stage, if any.
func (b *CallQueueBuilder) stageGreeting(cq *msteams.CallQueue, stage string) *msteams.Prompt {
	if stage == "overflow" {
		return cq.OverflowGreeting
	}
	return cq.TimeoutGreeting
}

// renderSeconds renders a duration threshold as "N seconds".
func renderSeconds(n int) string {
	return strconv.Itoa(n) + " seconds"
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
