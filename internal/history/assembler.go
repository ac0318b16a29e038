// Package history turns stored session turns into the request payload sent
// to the generative API.
package history

import (
	"github.com/xiaot623/leetmentor/internal/domain"
	"github.com/xiaot623/leetmentor/internal/prompt"
)

// DefaultWindow is the number of user/assistant turns sent per request.
const DefaultWindow = 10

// InstructionPrefix marks director content sent under the user role.
const InstructionPrefix = "[SYSTEM INSTRUCTION]: "

// ReminderPrefix marks the trailing block of every payload.
const ReminderPrefix = "[REMINDER]: "

// Kind tells the gateway where a block came from.
type Kind string

const (
	KindInstruction  Kind = "instruction"
	KindConversation Kind = "conversation"
	KindReminder     Kind = "reminder"
)

// Block is one role-tagged text entry of a payload. Role is always
// RoleUser or RoleAssistant.
type Block struct {
	Role domain.Role
	Kind Kind
	Text string
}

// Payload is the ordered request body: instructions, window, reminder.
type Payload []Block

// Instructions returns the leading instruction blocks.
func (p Payload) Instructions() []Block {
	return p.ofKind(KindInstruction)
}

// Conversation returns the windowed user and assistant blocks, in order.
// The trailing reminder is not part of it.
func (p Payload) Conversation() []Block {
	return p.ofKind(KindConversation)
}

// Reminder returns the trailing reminder block.
func (p Payload) Reminder() (Block, bool) {
	if len(p) == 0 || p[len(p)-1].Kind != KindReminder {
		return Block{}, false
	}
	return p[len(p)-1], true
}

func (p Payload) ofKind(kind Kind) []Block {
	var out []Block
	for _, b := range p {
		if b.Kind == kind {
			out = append(out, b)
		}
	}
	return out
}

// Assembler builds payloads under a fixed sliding window.
type Assembler struct {
	// Window caps conversation blocks. Values <= 0 use DefaultWindow.
	Window int
	// NativeSystemRole drops the instruction prefix so a gateway with a real
	// system role can forward director content as-is. Blocks keep
	// KindInstruction either way.
	NativeSystemRole bool
}

// New creates an assembler with the given window.
func New(window int, nativeSystemRole bool) *Assembler {
	return &Assembler{Window: window, NativeSystemRole: nativeSystemRole}
}

// Assemble builds the payload for session. It never mutates session.
func (a *Assembler) Assemble(session *domain.Session) Payload {
	window := a.Window
	if window <= 0 {
		window = DefaultWindow
	}

	var directives, conversation []domain.Turn
	for _, t := range session.Turns {
		if t.Role == domain.RoleDirector {
			directives = append(directives, t)
		} else {
			conversation = append(conversation, t)
		}
	}
	if len(conversation) > window {
		conversation = conversation[len(conversation)-window:]
	}

	payload := make(Payload, 0, len(directives)+len(conversation)+1)
	for _, t := range directives {
		text := t.Content
		if !a.NativeSystemRole {
			text = InstructionPrefix + text
		}
		payload = append(payload, Block{Role: domain.RoleUser, Kind: KindInstruction, Text: text})
	}
	for _, t := range conversation {
		payload = append(payload, Block{Role: t.Role, Kind: KindConversation, Text: t.Content})
	}
	payload = append(payload, Block{
		Role: domain.RoleUser,
		Kind: KindReminder,
		Text: ReminderPrefix + prompt.Reminder(session.ProblemReference),
	})

	return payload
}
