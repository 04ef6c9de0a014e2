package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"toribot/pkg/backend"
	"toribot/pkg/commands"
	"toribot/pkg/directive"
	"toribot/pkg/kakao"
	"toribot/pkg/logger"
	"toribot/pkg/pairing"
	"toribot/pkg/session"
)

// Fixed user-facing texts. Kakao renders them as plain balloons.
const (
	thinkingText            = "🤔 Thinking... I will get back to you in a moment."
	serverErrorText         = "😵 Something went wrong on my side. Please try again."
	pairingPrompt           = "🔒 This chat is not paired yet. Send \"/pair <code>\" with the code from your operator to get started."
	pairingUsage            = "Usage: /pair <code> [name]"
	pairingRejectedText     = "❌ That code does not match. Check it and try again."
	pairingUnconfiguredText = "🔧 Pairing is not set up yet. Ask the operator to set a pairing code."
	emptyPromptText         = "Say something and I will pass it to the assistant. Type / to see commands."
)

// Default quick-reply sets, attached on the callback path only. The
// synchronous path carries just the command's own quick replies.
var (
	pairedQuickReplies     = []kakao.QuickReply{kakao.MessageReply("Get started", "/help"), kakao.MessageReply("Status", "/status")}
	commandQuickReplies    = []kakao.QuickReply{kakao.MessageReply("Help", "/help"), kakao.MessageReply("Status", "/status")}
	clearQuickReplies      = []kakao.QuickReply{kakao.MessageReply("New chat", "Hello!"), kakao.MessageReply("Help", "/help")}
	chatQuickReplies       = []kakao.QuickReply{kakao.MessageReply("Continue", "Continue"), kakao.MessageReply("New topic", "/clear")}
	unverifiedQuickReplies = []kakao.QuickReply{kakao.MessageReply("How to pair", "/pair")}
)

// Kind names the branch a turn was decided on.
type Kind int

const (
	KindPairing Kind = iota
	KindUnverified
	KindCommand
	KindChat
)

// String names the branch for log fields.
func (k Kind) String() string {
	switch k {
	case KindPairing:
		return "pairing"
	case KindUnverified:
		return "unverified"
	case KindCommand:
		return "command"
	case KindChat:
		return "chat"
	}
	return "unknown"
}

// Decision is the outcome of one turn before delivery formatting.
type Decision struct {
	Kind         Kind
	Text         string
	QuickReplies []commands.QuickReply
	SessionReset bool
	PairingOK    bool
}

// ChatBackend answers non-command turns. *backend.Client satisfies it.
type ChatBackend interface {
	Ask(ctx context.Context, query backend.Query) (string, error)
}

// CommandExecutor runs command turns. *commands.Executor satisfies it.
type CommandExecutor interface {
	Execute(ctx context.Context, message, sessionID string) (commands.CommandResult, error)
}

// CallbackPoster delivers callback envelopes. *kakao.CallbackClient
// satisfies it.
type CallbackPoster interface {
	Post(ctx context.Context, url string, payload any) error
}

// Orchestrator decides each inbound turn and shapes its delivery.
// Both delivery paths share one decision tree; they differ only in
// how the envelope leaves the process and in which default quick
// replies are attached.
type Orchestrator struct {
	sessions *session.Manager
	pairing  *pairing.Store
	executor CommandExecutor
	backend  ChatBackend
	callback CallbackPoster
	log      *logger.Logger
}

// NewOrchestrator creates the per-request decision engine.
func NewOrchestrator(sessions *session.Manager, pairingStore *pairing.Store, executor CommandExecutor, chatBackend ChatBackend, callback CallbackPoster, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		pairing:  pairingStore,
		executor: executor,
		backend:  chatBackend,
		callback: callback,
		log:      log,
	}
}

// SessionID derives the conversation key for a sender. Raw Kakao user
// ids get the channel prefix; ids that already carry one keep it.
func SessionID(senderID string) string {
	if strings.Contains(senderID, ":") {
		return senderID
	}
	return "kakao:" + senderID
}

// RunSync decides a turn and returns the envelope for the HTTP body.
// Kakao stops listening after roughly five seconds on this path; long
// turns should arrive with a callback URL instead.
func (o *Orchestrator) RunSync(ctx context.Context, senderID, utterance string) (response kakao.SkillResponse) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Panic in synchronous turn",
				zap.Any("panic", r),
				zap.Stack("stack"))
			response = kakao.Reply(serverErrorText)
		}
	}()

	started := time.Now()
	decision := o.decide(ctx, senderID, utterance)
	o.log.Info("Turn decided",
		zap.String("sender_id", senderID),
		zap.String("kind", decision.Kind.String()),
		zap.Duration("duration", time.Since(started)))

	return kakao.Reply(decision.Text, o.quickRepliesFor(decision, false)...)
}

// RunAsync decides a turn in the background and posts the result to
// the callback URL. The HTTP handler has already acknowledged with a
// waiting balloon and does not wait for this.
func (o *Orchestrator) RunAsync(senderID, utterance, callbackURL, requestID string) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Panic in background turn",
				zap.String("request_id", requestID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			o.postError(callbackURL, requestID)
		}
	}()

	started := time.Now()
	decision := o.decide(ctx, senderID, utterance)
	o.log.Info("Turn decided",
		zap.String("request_id", requestID),
		zap.String("sender_id", senderID),
		zap.String("kind", decision.Kind.String()),
		zap.Duration("duration", time.Since(started)))

	response := kakao.Reply(decision.Text, o.quickRepliesFor(decision, true)...)

	if err := o.callback.Post(ctx, callbackURL, response); err != nil {
		o.log.Error("Callback delivery failed",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// Answer decides a turn and returns its plain text, for surfaces that
// do not speak Kakao envelopes.
func (o *Orchestrator) Answer(ctx context.Context, senderID, utterance string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Panic in plain turn",
				zap.Any("panic", r),
				zap.Stack("stack"))
			text = serverErrorText
		}
	}()

	return o.decide(ctx, senderID, utterance).Text
}

// decide is the shared decision tree: pairing first, then the
// verification gate, then commands, then chat.
func (o *Orchestrator) decide(ctx context.Context, senderID, utterance string) Decision {
	sessionID := SessionID(senderID)
	trimmed := strings.TrimSpace(utterance)

	// Pairing is handled before the verification gate, so a sender
	// can pair themselves.
	if isPairingAttempt(trimmed) {
		return o.decidePairing(senderID, trimmed)
	}

	if !o.pairing.IsVerified(senderID) {
		return Decision{Kind: KindUnverified, Text: pairingPrompt}
	}

	if commands.IsCommand(trimmed) {
		if decision, done := o.decideCommand(ctx, trimmed, sessionID); done {
			return decision
		}
		// The CLI did not recognize the token, read it as chat.
	}

	return o.decideChat(ctx, trimmed, sessionID)
}

func isPairingAttempt(trimmed string) bool {
	fields := strings.Fields(trimmed)
	return len(fields) > 0 && strings.EqualFold(fields[0], commands.PairToken)
}

// decidePairing parses "/pair <code> [display name]" and verifies it.
func (o *Orchestrator) decidePairing(senderID, trimmed string) Decision {
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return Decision{Kind: KindPairing, Text: pairingUsage}
	}
	code := fields[1]
	name := strings.Join(fields[2:], " ")

	ok, err := o.pairing.Verify(senderID, code, name)
	if err != nil {
		if errors.Is(err, pairing.ErrNotConfigured) {
			return Decision{Kind: KindPairing, Text: pairingUnconfiguredText}
		}
		o.log.Error("Pairing verification failed",
			zap.String("sender_id", senderID),
			zap.Error(err))
		return Decision{Kind: KindPairing, Text: serverErrorText}
	}
	if !ok {
		o.log.Warn("Pairing code rejected", zap.String("sender_id", senderID))
		return Decision{Kind: KindPairing, Text: pairingRejectedText}
	}

	o.log.Info("Sender paired",
		zap.String("sender_id", senderID),
		zap.String("name", name))
	return Decision{Kind: KindPairing, PairingOK: true, Text: pairingWelcome(name)}
}

func pairingWelcome(name string) string {
	if name == "" {
		return "✅ Paired! Type / to see what I can do."
	}
	return fmt.Sprintf("✅ Paired! Welcome, %s. Type / to see what I can do.", name)
}

// decideCommand runs the command pipeline. done is false when the
// token fell through to chat.
func (o *Orchestrator) decideCommand(ctx context.Context, trimmed, sessionID string) (Decision, bool) {
	result, err := o.executor.Execute(ctx, trimmed, sessionID)
	if err != nil {
		o.log.Error("Command turn failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return Decision{Kind: KindCommand, Text: fmt.Sprintf("⚠️ Execution error: %v", err)}, true
	}
	if !result.Handled {
		return Decision{}, false
	}

	return Decision{
		Kind:         KindCommand,
		Text:         result.Response,
		QuickReplies: result.QuickReplies,
		SessionReset: result.SessionReset,
	}, true
}

// decideChat strips directives, reads the turn against history, and
// asks the backend.
func (o *Orchestrator) decideChat(ctx context.Context, trimmed, sessionID string) Decision {
	if trimmed == "" {
		return Decision{Kind: KindChat, Text: emptyPromptText}
	}

	extraction := directive.Extract(trimmed)
	message := extraction.Clean
	if message == "" {
		message = trimmed
	}

	history := o.sessions.Recent(sessionID)
	if err := o.sessions.Append(sessionID, session.RoleUser, message); err != nil {
		o.log.Warn("Recording user turn failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	reply, err := o.backend.Ask(ctx, backend.Query{
		SessionID:  sessionID,
		Message:    message,
		Directives: extraction.Directives,
		History:    history,
	})
	if err != nil {
		o.log.Error("Backend turn failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return Decision{Kind: KindChat, Text: backend.Fallback(err)}
	}

	if err := o.sessions.Append(sessionID, session.RoleAssistant, reply); err != nil {
		o.log.Warn("Recording assistant turn failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	return Decision{Kind: KindChat, Text: reply}
}

// quickRepliesFor applies the attachment priority: the command's own
// set wins, defaults exist only on the callback path.
func (o *Orchestrator) quickRepliesFor(decision Decision, async bool) []kakao.QuickReply {
	if len(decision.QuickReplies) > 0 {
		mapped := make([]kakao.QuickReply, 0, len(decision.QuickReplies))
		for _, qr := range decision.QuickReplies {
			mapped = append(mapped, kakao.MessageReply(qr.Label, qr.Message))
		}
		return mapped
	}
	if !async {
		return nil
	}

	switch decision.Kind {
	case KindPairing:
		if decision.PairingOK {
			return pairedQuickReplies
		}
	case KindUnverified:
		// Tapping it resubmits the bare token, which answers with usage.
		return unverifiedQuickReplies
	case KindCommand:
		if decision.SessionReset {
			return clearQuickReplies
		}
		return commandQuickReplies
	case KindChat:
		return chatQuickReplies
	}
	return nil
}

func (o *Orchestrator) postError(callbackURL, requestID string) {
	payload := kakao.NewErrorCallback(serverErrorText)
	if err := o.callback.Post(context.Background(), callbackURL, payload); err != nil {
		o.log.Error("Error callback delivery failed",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
