package services

import (
	"unicode/utf8"

	"github.com/biztechoff/servicedesk-backend/internal/models"
)

// Step enumerates the conversation steps.
type Step string

const (
	StepIdle              Step = "idle"
	StepMainMenu          Step = "main_menu"
	StepSelectServiceType Step = "select_service_type"
	StepEnterAddress      Step = "enter_address"
	StepEnterDescription  Step = "enter_description"

	// Reserved for the existing-service flow; no transitions yet.
	StepViewServiceStatus Step = "view_service_status"
	StepUpdateExisting    Step = "update_existing"
)

// Minimum length for free-text answers (address, description).
const minFreeTextLen = 3

// Effect is one side effect a transition asks the orchestrator to
// perform. The transition function itself does no I/O.
type Effect interface{ isEffect() }

// EffectSendText sends one outbound text to the conversation's phone.
type EffectSendText struct {
	Text string
}

// EffectLog appends a bot audit entry.
type EffectLog struct {
	Kind    models.LogType
	Details string
}

// EffectCreateCall persists a new service call. The orchestrator sends
// the confirmation and resets the conversation on success, or falls
// back to the main menu on persistence failure.
type EffectCreateCall struct {
	Call models.ServiceCall
}

func (EffectSendText) isEffect()   {}
func (EffectLog) isEffect()        {}
func (EffectCreateCall) isEffect() {}

// FlowContext carries the data a transition may need, fetched by the
// orchestrator before the transition runs.
type FlowContext struct {
	Customer *models.Customer

	// Open or in-progress calls for the customer, newest first.
	OpenCalls []*models.ServiceCall

	// FirstContact is true when the customer was auto-created for this
	// very message; it only changes the greeting, not the transition.
	FirstContact bool
}

// Flow is the conversation state machine. Advancing mutates only the
// given state; everything else is expressed as effects.
type Flow struct {
	msgs *Messages
}

// NewFlow creates a new conversation flow
func NewFlow(msgs *Messages) *Flow {
	return &Flow{msgs: msgs}
}

// Advance consumes one trimmed inbound text and moves the conversation
// forward, returning the side effects to perform in order.
func (f *Flow) Advance(state *ConversationState, input string, ctx FlowContext) []Effect {
	switch state.Step {
	case StepIdle:
		return f.greet(state, ctx)
	case StepMainMenu:
		return f.mainMenu(state, input, ctx)
	case StepSelectServiceType:
		return f.selectServiceType(state, input)
	case StepEnterAddress:
		return f.enterAddress(state, input)
	case StepEnterDescription:
		return f.enterDescription(state, input)
	default:
		// Unknown step should be unreachable; restart the flow.
		state.Step = StepIdle
		return f.greet(state, ctx)
	}
}

// greet handles the first message of a conversation. Input is ignored:
// whatever the customer wrote, they get the status summary or the menu.
func (f *Flow) greet(state *ConversationState, ctx FlowContext) []Effect {
	var effects []Effect

	switch {
	case len(ctx.OpenCalls) > 0:
		effects = append(effects, EffectSendText{
			Text: f.msgs.OpenCall(state.CustomerName, ctx.OpenCalls[0]),
		})
	case ctx.FirstContact:
		effects = append(effects, EffectSendText{Text: f.msgs.FirstTime()})
	default:
		effects = append(effects, EffectSendText{Text: f.msgs.Welcome(state.CustomerName)})
	}

	state.Step = StepMainMenu
	effects = append(effects, EffectLog{Kind: models.LogSessionStarted, Details: "שיחה החלה"})
	return effects
}

func (f *Flow) mainMenu(state *ConversationState, choice string, ctx FlowContext) []Effect {
	switch choice {
	case "1": // New service call
		state.Step = StepSelectServiceType
		return []Effect{EffectSendText{Text: f.msgs.ServiceTypeMenu()}}

	case "2": // Existing service inquiry
		if len(ctx.OpenCalls) > 0 {
			return []Effect{EffectSendText{Text: f.msgs.CallsList(ctx.OpenCalls)}}
		}
		return []Effect{EffectSendText{Text: f.msgs.NoOpenCalls()}}

	case "3": // Urgent fault
		return []Effect{EffectSendText{Text: f.msgs.Urgent()}}

	case "4": // Price quote
		return []Effect{EffectSendText{Text: f.msgs.Quote()}}

	case "5": // Human representative
		state.Step = StepIdle
		return []Effect{
			EffectSendText{Text: f.msgs.Handoff()},
			EffectLog{Kind: models.LogMessageReceived, Details: "לקוח ביקש שיחה עם נציג"},
		}

	default:
		return []Effect{EffectSendText{Text: f.msgs.DidNotUnderstand()}}
	}
}

func (f *Flow) selectServiceType(state *ConversationState, choice string) []Effect {
	serviceType, ok := models.ServiceTypeFromMenuKey(choice)
	if !ok {
		return []Effect{EffectSendText{Text: f.msgs.DidNotUnderstand()}}
	}

	state.ServiceType = serviceType
	state.Step = StepEnterAddress
	return []Effect{EffectSendText{Text: f.msgs.AskAddress()}}
}

func (f *Flow) enterAddress(state *ConversationState, address string) []Effect {
	if utf8.RuneCountInString(address) < minFreeTextLen {
		return []Effect{EffectSendText{Text: f.msgs.InvalidAddress()}}
	}

	state.Address = address
	state.Step = StepEnterDescription
	return []Effect{EffectSendText{Text: f.msgs.AskDescription()}}
}

func (f *Flow) enterDescription(state *ConversationState, description string) []Effect {
	if utf8.RuneCountInString(description) < minFreeTextLen {
		return []Effect{EffectSendText{Text: f.msgs.MoreDetail()}}
	}

	state.Description = description

	serviceType := state.ServiceType
	if serviceType == "" {
		serviceType = models.ServiceTypeOther
	}

	return []Effect{EffectCreateCall{Call: models.ServiceCall{
		CustomerID:    state.CustomerID,
		ServiceType:   serviceType,
		Address:       state.Address,
		Description:   description,
		ContactName:   state.CustomerName,
		ContactMobile: "", // filled from the phone by the orchestrator
		Status:        models.StatusOpen,
	}}}
}
