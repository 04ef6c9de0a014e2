package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"toribot/pkg/backend"
	"toribot/pkg/commands"
	"toribot/pkg/config"
	"toribot/pkg/kakao"
	"toribot/pkg/logger"
	"toribot/pkg/pairing"
	"toribot/pkg/session"
)

const testPairingCode = "ABC123"

type stubRunner struct {
	output string
	err    error
	calls  []string
}

func (s *stubRunner) Run(ctx context.Context, command string) (string, error) {
	s.calls = append(s.calls, command)
	return s.output, s.err
}

type testStack struct {
	server   *Server
	config   *config.Config
	runtime  *config.Runtime
	sessions *session.Manager
	pairing  *pairing.Store
	runner   *stubRunner
}

func pairedHash(t *testing.T, code string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing pairing code: %v", err)
	}
	return string(hash)
}

func completionHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
	}
}

func newTestStack(t *testing.T, backendHandler http.HandlerFunc) *testStack {
	t.Helper()

	backendServer := httptest.NewServer(backendHandler)
	t.Cleanup(backendServer.Close)

	cfg := config.DefaultConfig()
	cfg.Server.Port = 0
	cfg.Backend.BaseURL = backendServer.URL
	cfg.Workspace = t.TempDir()

	log, err := logger.New(logger.DefaultConfig())
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}

	sessions := session.NewManager(filepath.Join(cfg.Workspace, "sessions"), cfg.RecentWindow())
	store := pairing.NewStore(filepath.Join(cfg.Workspace, "paired.json"), pairedHash(t, testPairingCode))

	registry := commands.NewRegistry()
	err = commands.RegisterBuiltinCommands(registry, commands.BuiltinDeps{
		Sessions: sessions,
		Program:  cfg.CLI.Program,
		Models:   cfg.Models.Allowed,
	})
	if err != nil {
		t.Fatalf("RegisterBuiltinCommands failed: %v", err)
	}

	runner := &stubRunner{}
	executor := commands.NewExecutor(registry, runner, cfg.CLI.Program, cfg.CLI.UnknownMarkers, log)
	chatBackend := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Model, log)
	callback := kakao.NewCallbackClient(log)

	orchestrator := NewOrchestrator(sessions, store, executor, chatBackend, callback, log)
	runtime := config.NewRuntime(cfg)
	server := NewServer(cfg, runtime, log, orchestrator, sessions)

	return &testStack{
		server:   server,
		config:   cfg,
		runtime:  runtime,
		sessions: sessions,
		pairing:  store,
		runner:   runner,
	}
}

func postSkill(t *testing.T, s *Server, senderID, utterance, callbackURL string) *httptest.ResponseRecorder {
	t.Helper()

	payload := fmt.Sprintf(`{"userRequest":{"user":{"id":%q},"utterance":%q,"callbackUrl":%q}}`,
		senderID, utterance, callbackURL)
	req := httptest.NewRequest(http.MethodPost, "/kakao/skill", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeReply(t *testing.T, rec *httptest.ResponseRecorder) kakao.SkillResponse {
	t.Helper()
	var response kakao.SkillResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

func replyText(t *testing.T, response kakao.SkillResponse) string {
	t.Helper()
	if response.Template == nil || len(response.Template.Outputs) == 0 || response.Template.Outputs[0].SimpleText == nil {
		t.Fatalf("response has no text balloon: %+v", response)
	}
	return response.Template.Outputs[0].SimpleText.Text
}

func TestSkillRejectsMalformedPayload(t *testing.T) {
	stack := newTestStack(t, completionHandler("unused"))

	req := httptest.NewRequest(http.MethodPost, "/kakao/skill", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	stack.server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSkillRejectsMissingUserID(t *testing.T) {
	stack := newTestStack(t, completionHandler("unused"))

	rec := postSkill(t, stack.server, "", "hello", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	stack := newTestStack(t, completionHandler("unused"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	stack.server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["version"] == "" {
		t.Error("health body misses the version")
	}
}

func TestUnverifiedSenderGetsPairingPrompt(t *testing.T) {
	stack := newTestStack(t, completionHandler("unused"))

	rec := postSkill(t, stack.server, "stranger", "hello there", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := replyText(t, decodeReply(t, rec)); got != pairingPrompt {
		t.Errorf("expected the pairing prompt, got %q", got)
	}
}

func TestPairingFlow(t *testing.T) {
	stack := newTestStack(t, completionHandler("unused"))

	// Missing code yields usage.
	rec := postSkill(t, stack.server, "u-1", "/pair", "")
	if got := replyText(t, decodeReply(t, rec)); got != pairingUsage {
		t.Errorf("expected usage, got %q", got)
	}

	// Wrong code is rejected.
	rec = postSkill(t, stack.server, "u-1", "/pair WRONG", "")
	if got := replyText(t, decodeReply(t, rec)); got != pairingRejectedText {
		t.Errorf("expected rejection, got %q", got)
	}
	if stack.pairing.IsVerified("u-1") {
		t.Fatal("sender verified despite a wrong code")
	}

	// Correct code with a display name pairs the sender.
	rec = postSkill(t, stack.server, "u-1", "/pair "+testPairingCode+" Jane", "")
	got := replyText(t, decodeReply(t, rec))
	if !strings.Contains(got, "Paired") || !strings.Contains(got, "Jane") {
		t.Errorf("unexpected pairing confirmation %q", got)
	}
	if !stack.pairing.IsVerified("u-1") {
		t.Fatal("sender not verified after the correct code")
	}

	// The synchronous path never attaches the get-started defaults.
	if response := decodeReply(t, postSkill(t, stack.server, "u-2", "/pair "+testPairingCode, "")); response.Template.QuickReplies != nil {
		t.Errorf("sync pairing reply carries quick replies: %+v", response.Template.QuickReplies)
	}
}

func TestCommandTurnSync(t *testing.T) {
	stack := newTestStack(t, completionHandler("unused"))
	stack.runner.output = "● Ready (claude 2.1)"
	if err := stack.pairing.Admit("u-1", "Tester"); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	rec := postSkill(t, stack.server, "u-1", "/status", "")
	response := decodeReply(t, rec)

	if got := replyText(t, response); got != "● Ready (claude 2.1)" {
		t.Errorf("unexpected status reply %q", got)
	}
	if len(stack.runner.calls) != 1 || stack.runner.calls[0] != "claude status" {
		t.Errorf("unexpected CLI calls %v", stack.runner.calls)
	}
	// Defaults are async-only; /status has no own quick replies.
	if response.Template.QuickReplies != nil {
		t.Errorf("sync command reply carries quick replies: %+v", response.Template.QuickReplies)
	}
}

func TestMenuQuickRepliesSurviveSyncPath(t *testing.T) {
	stack := newTestStack(t, completionHandler("unused"))
	if err := stack.pairing.Admit("u-1", "Tester"); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	response := decodeReply(t, postSkill(t, stack.server, "u-1", "/", ""))
	qrs := response.Template.QuickReplies
	if len(qrs) == 0 {
		t.Fatal("menu reply lost its quick replies on the sync path")
	}
	for _, qr := range qrs {
		if qr.Action != "message" {
			t.Errorf("quick reply %+v must resubmit a message", qr)
		}
	}
}

func TestChatTurnWithCallback(t *testing.T) {
	stack := newTestStack(t, completionHandler("the weather is fine"))
	if err := stack.pairing.Admit("u-1", "Tester"); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	delivered := make(chan kakao.SkillResponse, 1)
	callbackServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var response kakao.SkillResponse
		if err := json.NewDecoder(r.Body).Decode(&response); err != nil {
			t.Errorf("decoding callback: %v", err)
		}
		delivered <- response
		w.WriteHeader(http.StatusOK)
	}))
	defer callbackServer.Close()

	rec := postSkill(t, stack.server, "u-1", "how is the weather", callbackServer.URL)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	ack := decodeReply(t, rec)
	if !ack.UseCallback {
		t.Error("immediate body must request the callback channel")
	}
	if ack.Data["text"] == "" {
		t.Error("immediate body misses the waiting text")
	}

	select {
	case response := <-delivered:
		if got := replyText(t, response); got != "the weather is fine" {
			t.Errorf("unexpected callback reply %q", got)
		}
		if len(response.Template.QuickReplies) == 0 {
			t.Error("async chat reply misses the default quick replies")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never delivered")
	}

	history := stack.sessions.Recent(SessionID("u-1"))
	if len(history) != 2 {
		t.Fatalf("expected 2 recorded turns, got %d", len(history))
	}
	if history[0].Role != session.RoleUser || history[1].Role != session.RoleAssistant {
		t.Errorf("unexpected history roles %+v", history)
	}
}

func TestUnknownCommandFallsThroughToChatWithDirectives(t *testing.T) {
	var gotBackendBody struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Metadata struct {
			Directives []string `json:"directives"`
		} `json:"metadata"`
	}
	backendHandler := func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBackendBody); err != nil {
			t.Errorf("decoding backend request: %v", err)
		}
		completionHandler("thinking hard now")(w, r)
	}

	stack := newTestStack(t, backendHandler)
	if err := stack.pairing.Admit("u-1", "Tester"); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	// The CLI does not know a "thinking" subcommand.
	stack.runner.err = fmt.Errorf("running /thinking: %w", fmt.Errorf("command not recognized"))

	rec := postSkill(t, stack.server, "u-1", "/thinking high summarize my day", "")
	if got := replyText(t, decodeReply(t, rec)); got != "thinking hard now" {
		t.Errorf("unexpected chat reply %q", got)
	}

	if len(gotBackendBody.Metadata.Directives) != 1 || gotBackendBody.Metadata.Directives[0] != "/thinking high" {
		t.Errorf("directive not extracted: %+v", gotBackendBody.Metadata)
	}
	last := gotBackendBody.Messages[len(gotBackendBody.Messages)-1]
	if last.Content != "summarize my day" {
		t.Errorf("directive not stripped from the chat turn: %q", last.Content)
	}
}

func TestClearCommandAsyncQuickReplies(t *testing.T) {
	stack := newTestStack(t, completionHandler("unused"))
	if err := stack.pairing.Admit("u-1", "Tester"); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	delivered := make(chan kakao.SkillResponse, 1)
	callbackServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var response kakao.SkillResponse
		json.NewDecoder(r.Body).Decode(&response)
		delivered <- response
	}))
	defer callbackServer.Close()

	postSkill(t, stack.server, "u-1", "/clear", callbackServer.URL)

	select {
	case response := <-delivered:
		qrs := response.Template.QuickReplies
		if len(qrs) != len(clearQuickReplies) {
			t.Fatalf("expected the clear defaults, got %+v", qrs)
		}
		if qrs[0].Label != clearQuickReplies[0].Label {
			t.Errorf("unexpected first quick reply %+v", qrs[0])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never delivered")
	}
}

func TestSenderAllowListBlocks(t *testing.T) {
	stack := newTestStack(t, completionHandler("unused"))
	stack.config.Server.AllowSenders = []string{"vip"}

	rec := postSkill(t, stack.server, "other", "hello", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := replyText(t, decodeReply(t, rec)); got != notAllowedText {
		t.Errorf("expected the allow-list refusal, got %q", got)
	}

	// A config reload swaps the runtime view; the next request sees the
	// widened allow list without a restart.
	reloaded := config.DefaultConfig()
	reloaded.Workspace = stack.config.Workspace
	stack.runtime.Swap(reloaded)

	rec = postSkill(t, stack.server, "other", "hello", "")
	if got := replyText(t, decodeReply(t, rec)); got == notAllowedText {
		t.Errorf("expected the swapped config to admit the sender, got %q", got)
	}
}

func TestBackendFailureFallsBackWithoutRecordingReply(t *testing.T) {
	stack := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	})
	if err := stack.pairing.Admit("u-1", "Tester"); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	rec := postSkill(t, stack.server, "u-1", "hello", "")
	got := replyText(t, decodeReply(t, rec))
	if !strings.Contains(got, "could not reach") {
		t.Errorf("expected the fallback text, got %q", got)
	}

	history := stack.sessions.Recent(SessionID("u-1"))
	if len(history) != 1 || history[0].Role != session.RoleUser {
		t.Errorf("only the user turn should be recorded, got %+v", history)
	}
}
