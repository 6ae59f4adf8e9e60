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

	"github.com/voicegraph/callflow/internal/msteams"
	"github.com/voicegraph/callflow/pkg/logging"
)

// Stage keywords for auto attendant node ids. Default and after-hours
// stages are fully independent node namespaces: a greeting node id is
// never shared across the two flows.
const (
	stageDefault    = "default"
	stageAfterHours = "afterHours"
)

// AutoAttendantBuilder expands one auto attendant's holiday,
// after-hours and default decision tree into graph fragments.
type AutoAttendantBuilder struct {
	dir       msteams.Directory
	resolver  *Resolver
	formatter *Formatter
	logger    *logging.Logger
}

// NewAutoAttendantBuilder creates an auto attendant flow builder.
func NewAutoAttendantBuilder(dir msteams.Directory, resolver *Resolver, formatter *Formatter, logger *logging.Logger) *AutoAttendantBuilder {
	if logger == nil {
		logger = logging.Default()
	}
	return &AutoAttendantBuilder{
		dir:       dir,
		resolver:  resolver,
		formatter: formatter,
		logger:    logger,
	}
}

// Build expands the attendant into fragments on the accumulator.
//
// Stage order is Entry → [Holiday?] → [AfterHours?] → Default. When
// both checks are configured the holiday check runs first: holidays
// override business hours.
func (b *AutoAttendantBuilder) Build(ctx context.Context, acc *Accumulator, aa *msteams.AutoAttendant) error {
	entry := EntryNode(aa.VoiceApp)

	holidays := b.enabledHolidays(aa)
	hasHolidays := len(holidays) > 0

	afterHoursAssoc, afterHoursSchedule, hasAfterHours := b.afterHoursConfig(aa)

	var frag Fragment
	frag.Title = "Auto Attendant " + aa.Name

	// defaultHead is the node the default call flow hangs off.
	defaultHead := entry
	var afterHoursHead *Node

	switch {
	case !hasHolidays && !hasAfterHours:
		// Entry links directly to the default flow.

	case hasAfterHours && !hasHolidays:
		decision := b.businessHoursNode(aa, afterHoursSchedule)
		frag.Edge(entry, decision)
		defaultHead = decision
		afterHoursHead = &decision

	case hasHolidays && !hasAfterHours:
		decision := Node{
			ID:    NodeID("holidayCheck", aa.ID),
			Label: "During Holiday?",
			Shape: ShapeDecision,
			Class: "decision",
		}
		frag.Edge(entry, decision)
		frag.LabeledEdge(decision, Node{ID: b.holidaySubgraphID(aa)}, "Yes")
		defaultHead = decision

	default: // both configured, holiday check first
		holidayDecision := Node{
			ID:    NodeID("holidayCheck", aa.ID),
			Label: "During Holiday?",
			Shape: ShapeDecision,
			Class: "decision",
		}
		hoursDecision := b.businessHoursNode(aa, afterHoursSchedule)
		frag.Edge(entry, holidayDecision)
		frag.LabeledEdge(holidayDecision, Node{ID: b.holidaySubgraphID(aa)}, "Yes")
		frag.LabeledEdge(holidayDecision, hoursDecision, "No")
		defaultHead = hoursDecision
		afterHoursHead = &hoursDecision
	}

	acc.AddFragment(frag)

	// Default call flow. When a decision node heads it, the branch edge
	// is labeled "Yes" (during business hours); when holidays alone are
	// configured the label is "No" (not during a holiday).
	defaultEdgeLabel := ""
	if hasAfterHours {
		defaultEdgeLabel = "Yes"
	} else if hasHolidays {
		defaultEdgeLabel = "No"
	}
	if err := b.buildCallFlow(ctx, acc, aa, &aa.DefaultFlow, stageDefault, defaultHead, defaultEdgeLabel); err != nil {
		return fmt.Errorf("building default call flow: %w", err)
	}

	// After-hours call flow: same shape as default, applied
	// independently with its own node namespace.
	if hasAfterHours && afterHoursHead != nil {
		afterFlow := aa.CallFlowByID(afterHoursAssoc.CallFlowID)
		if afterFlow == nil {
			b.logger.Warn("after-hours association references unknown call flow",
				"app_id", aa.ID,
				"call_flow_id", afterHoursAssoc.CallFlowID,
			)
		} else {
			if err := b.buildCallFlow(ctx, acc, aa, afterFlow, stageAfterHours, *afterHoursHead, "No"); err != nil {
				return fmt.Errorf("building after-hours call flow: %w", err)
			}
		}
	}

	// Holiday subgraph, one sub-block per enabled association.
	if hasHolidays {
		if err := b.buildHolidays(ctx, acc, aa, holidays); err != nil {
			return fmt.Errorf("building holiday flows: %w", err)
		}
	}

	return nil
}

// enabledHolidays returns the enabled Holiday-type associations.
func (b *AutoAttendantBuilder) enabledHolidays(aa *msteams.AutoAttendant) []msteams.CallHandlingAssociation {
	var out []msteams.CallHandlingAssociation
	for _, assoc := range aa.Associations {
		if assoc.Type == msteams.AssociationHoliday && assoc.Enabled {
			out = append(out, assoc)
		}
	}
	return out
}

// afterHoursConfig locates the enabled after-hours association and
// decides whether it constitutes real after-hours handling. Ambiguous
// schedule shapes degrade to "no after-hours configured".
func (b *AutoAttendantBuilder) afterHoursConfig(aa *msteams.AutoAttendant) (msteams.CallHandlingAssociation, *msteams.Schedule, bool) {
	for _, assoc := range aa.Associations {
		if assoc.Type != msteams.AssociationAfterHours || !assoc.Enabled {
			continue
		}
		schedule := aa.ScheduleByID(assoc.ScheduleID)
		has, err := HasAfterHours(schedule)
		if err != nil {
			b.logger.Warn("ambiguous business-hours schedule, treating as no after-hours",
				"app_id", aa.ID,
				"schedule_id", assoc.ScheduleID,
				"error", err.Error(),
			)
			return assoc, nil, false
		}
		return assoc, schedule, has
	}
	return msteams.CallHandlingAssociation{}, nil, false
}

// businessHoursNode renders the "During Business Hours?" decision
// diamond including the weekly hours.
func (b *AutoAttendantBuilder) businessHoursNode(aa *msteams.AutoAttendant, schedule *msteams.Schedule) Node {
	label := "During Business Hours?"
	if schedule != nil && schedule.Weekly != nil {
		label += " <br> " + BusinessHoursLabel(schedule.Weekly)
	}
	return Node{
		ID:    NodeID("businessHoursCheck", aa.ID),
		Label: label,
		Shape: ShapeDecision,
		Class: "decision",
	}
}

func (b *AutoAttendantBuilder) holidaySubgraphID(aa *msteams.AutoAttendant) string {
	return NodeID("subgraphHolidays", aa.ID)
}

// buildCallFlow expands one call flow (default or after-hours) from
// its head node. headLabel labels the edge out of a decision head
// ("Yes"/"No"), empty for a direct entry link.
func (b *AutoAttendantBuilder) buildCallFlow(ctx context.Context, acc *Accumulator, aa *msteams.AutoAttendant, cf *msteams.CallFlow, stage string, head Node, headLabel string) error {
	var frag Fragment
	frag.Title = aa.Name + " " + stage + " flow"

	current := head

	// Greeting node, omitted entirely when no greeting is configured:
	// "no greeting" never produces a dangling edge.
	if greeting, ok := b.formatter.GreetingNode(acc, cf.Greeting(), NodeID(stage+"Greeting", aa.ID), "Greeting"); ok {
		frag.LabeledEdge(current, greeting, headLabel)
		current = greeting
		headLabel = ""
	}

	options := cf.Menu.Options
	menuPrompt := cf.Menu.Prompt

	// A flow with at most one option and no menu prompt has no real
	// IVR: skip the decision diamond and connect straight to the
	// single action.
	if len(options) <= 1 && !menuPrompt.IsConfigured() {
		var opt msteams.MenuOption
		if len(options) == 1 {
			opt = options[0]
		} else {
			opt = msteams.MenuOption{Action: msteams.ActionDisconnect}
		}
		if err := b.renderAction(ctx, acc, &frag, aa, stage, 0, opt, current, headLabel, nil); err != nil {
			return err
		}
		acc.AddFragment(frag)
		return nil
	}

	// Full IVR: greeting for the menu prompt feeds the Key Press
	// decision diamond, fanning out one labeled edge per DTMF key.
	ivrHead := current
	if ivrGreeting, ok := b.formatter.GreetingNode(acc, menuPrompt, NodeID(stage+"IvrGreeting", aa.ID), "IVR Greeting"); ok {
		frag.LabeledEdge(current, ivrGreeting, headLabel)
		ivrHead = ivrGreeting
		headLabel = ""
	}

	menu := Node{
		ID:    NodeID(stage+"Menu", aa.ID),
		Label: "Key Press",
		Shape: ShapeDecision,
		Class: "decision",
	}
	frag.LabeledEdge(ivrHead, menu, headLabel)

	for i, opt := range options {
		label := opt.DtmfKey()
		if aa.VoiceResponseEnabled && len(opt.VoiceResponses) > 0 {
			label += " / " + SanitizeLabel(opt.VoiceResponses[0])
		}
		if err := b.renderAction(ctx, acc, &frag, aa, stage, i, opt, menu, label, &ivrHead); err != nil {
			return err
		}
	}

	acc.AddFragment(frag)
	return nil
}

// renderAction emits the edge and node(s) for one menu action.
// loopBack, when non-nil, is where announcements return to (the IVR
// greeting); holiday flows pass nil and announcements terminate.
func (b *AutoAttendantBuilder) renderAction(ctx context.Context, acc *Accumulator, frag *Fragment, aa *msteams.AutoAttendant, stage string, index int, opt msteams.MenuOption, from Node, edgeLabel string, loopBack *Node) error {
	switch opt.Action {
	case msteams.ActionDisconnect:
		frag.LabeledEdge(from, Node{
			ID:    IndexedNodeID(stage+"Disconnect", aa.ID, index),
			Label: "Disconnect Call",
			Shape: ShapeTerminal,
			Class: "terminal",
		}, edgeLabel)
		return nil

	case msteams.ActionAnnouncement:
		announcement, ok := b.formatter.GreetingNode(acc, opt.Prompt, IndexedNodeID(stage+"Announcement", aa.ID, index), "Announcement")
		if !ok {
			announcement = Node{
				ID:    IndexedNodeID(stage+"Announcement", aa.ID, index),
				Label: "Announcement",
				Shape: ShapeRound,
				Class: "greeting",
			}
		}
		frag.LabeledEdge(from, announcement, edgeLabel)
		if loopBack != nil {
			// Announcements are not dead ends: the caller returns to
			// the menu greeting.
			frag.Edge(announcement, *loopBack)
		} else {
			frag.Edge(announcement, Node{
				ID:    IndexedNodeID(stage+"Disconnect", aa.ID, index),
				Label: "Disconnect Call",
				Shape: ShapeTerminal,
				Class: "terminal",
			})
		}
		return nil

	case msteams.ActionTransferToOperator:
		target, err := b.resolver.ResolveOperator(ctx, acc, aa.Operator)
		if err != nil {
			return b.renderResolutionFailure(frag, aa, stage, index, from, edgeLabel, err)
		}
		operatorLabel := "Operator"
		if edgeLabel != "" {
			operatorLabel = edgeLabel + " Operator"
		}
		b.renderTransfer(frag, aa, stage, index, from, operatorLabel, target)
		return nil

	case msteams.ActionTransferToTarget:
		target, err := b.resolver.Resolve(ctx, acc, opt.CallTarget)
		if err != nil {
			return b.renderResolutionFailure(frag, aa, stage, index, from, edgeLabel, err)
		}
		b.renderTransfer(frag, aa, stage, index, from, edgeLabel, target)
		return nil

	default:
		b.logger.Warn("unknown menu action, omitting option",
			"app_id", aa.ID,
			"stage", stage,
			"action", string(opt.Action),
		)
		return nil
	}
}

// renderTransfer draws the edge to a resolved target, inserting the
// system disclaimer node in front of shared voicemail when the tenant
// has not suppressed it.
func (b *AutoAttendantBuilder) renderTransfer(frag *Fragment, aa *msteams.AutoAttendant, stage string, index int, from Node, edgeLabel string, target CallTarget) {
	if target.Kind == TargetSharedVoicemail && !target.SuppressSystemGreeting {
		system := Node{
			ID:    IndexedNodeID(stage+"SystemGreeting", aa.ID, index),
			Label: "MS System Message",
			Shape: ShapeRound,
			Class: "greeting",
		}
		frag.LabeledEdge(from, system, edgeLabel)
		frag.Edge(system, target.Node())
		return
	}
	frag.LabeledEdge(from, target.Node(), edgeLabel)
}

// renderResolutionFailure contains a ResolutionError by drawing a
// placeholder node; genuine lookup failures propagate so the driver
// can skip the whole app.
func (b *AutoAttendantBuilder) renderResolutionFailure(frag *Fragment, aa *msteams.AutoAttendant, stage string, index int, from Node, edgeLabel string, err error) error {
	if !IsResolutionError(err) {
		return err
	}
	b.logger.Warn("transfer target did not resolve, rendering placeholder",
		"app_id", aa.ID,
		"stage", stage,
		"error", err.Error(),
	)
	frag.LabeledEdge(from, Node{
		ID:    IndexedNodeID(stage+"Unresolved", aa.ID, index),
		Label: "Unresolved Target",
		Shape: ShapeRect,
		Class: "warning",
	}, edgeLabel)
	return nil
}

// buildHolidays emits the holiday subgraph: one sub-block per enabled
// association, each Schedule display → Greeting → single action (no
// IVR fan-out; holiday call handling has one action, not a menu).
func (b *AutoAttendantBuilder) buildHolidays(ctx context.Context, acc *Accumulator, aa *msteams.AutoAttendant, holidays []msteams.CallHandlingAssociation) error {
	var frag Fragment
	frag.Title = aa.Name + " holidays"
	frag.Add(SubgraphStart{
		ID:    b.holidaySubgraphID(aa),
		Title: "Holidays " + SanitizeLabel(aa.Name),
	})

	for i, assoc := range holidays {
		schedule := aa.ScheduleByID(assoc.ScheduleID)
		name := "Holiday"
		if schedule != nil && schedule.Name != "" {
			name = schedule.Name
		}

		scheduleNode := Node{
			ID:    IndexedNodeID("holidaySchedule", aa.ID, i),
			Label: SanitizeLabel(name) + " <br> " + HolidayScheduleLabel(schedule),
			Shape: ShapeSchedule,
			Class: "schedule",
		}
		frag.Add(NodeStmt{Node: scheduleNode})

		current := scheduleNode
		cf := aa.CallFlowByID(assoc.CallFlowID)
		if cf == nil {
			b.logger.Warn("holiday association references unknown call flow",
				"app_id", aa.ID,
				"call_flow_id", assoc.CallFlowID,
			)
			continue
		}

		stage := "holiday" + strconv.Itoa(i)
		if greeting, ok := b.formatter.GreetingNode(acc, cf.Greeting(), NodeID(stage+"Greeting", aa.ID), "Greeting"); ok {
			frag.Edge(current, greeting)
			current = greeting
		}

		opt := msteams.MenuOption{Action: msteams.ActionDisconnect}
		if len(cf.Menu.Options) > 0 {
			opt = cf.Menu.Options[0]
		}
		if err := b.renderAction(ctx, acc, &frag, aa, stage, 0, opt, current, "", nil); err != nil {
			return err
		}
	}

	frag.Add(SubgraphEnd{})
	acc.AddFragment(frag)
	return nil
}
