package kakao

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestReplyBuildsSimpleTextEnvelope(t *testing.T) {
	response := Reply("hello there")

	if response.Version != "2.0" {
		t.Errorf("unexpected version %q", response.Version)
	}
	if response.Template == nil || len(response.Template.Outputs) != 1 {
		t.Fatalf("expected one output, got %+v", response.Template)
	}
	if got := response.Template.Outputs[0].SimpleText.Text; got != "hello there" {
		t.Errorf("unexpected text %q", got)
	}
	if response.Template.QuickReplies != nil {
		t.Error("quick replies must be absent unless supplied")
	}

	data, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "quickReplies") {
		t.Errorf("empty quick replies leaked into JSON: %s", data)
	}
	if strings.Contains(string(data), "useCallback") {
		t.Errorf("useCallback leaked into a plain reply: %s", data)
	}
}

func TestReplyAttachesQuickRepliesInOrder(t *testing.T) {
	response := Reply("pick one",
		MessageReply("Help", "/help"),
		MessageReply("Status", "/status"),
	)

	qrs := response.Template.QuickReplies
	if len(qrs) != 2 {
		t.Fatalf("expected 2 quick replies, got %d", len(qrs))
	}
	if qrs[0].Label != "Help" || qrs[0].MessageText != "/help" {
		t.Errorf("unexpected first quick reply %+v", qrs[0])
	}
	if qrs[1].Label != "Status" {
		t.Errorf("quick reply order lost: %+v", qrs[1])
	}
	for _, qr := range qrs {
		if qr.Action != "message" {
			t.Errorf("quick reply %q must resubmit a message, got action %q", qr.Label, qr.Action)
		}
	}
}

func TestReplyTruncatesLongText(t *testing.T) {
	long := strings.Repeat("가", maxTextLength+50)
	response := Reply(long)

	got := []rune(response.Template.Outputs[0].SimpleText.Text)
	if len(got) != maxTextLength {
		t.Fatalf("expected %d characters, got %d", maxTextLength, len(got))
	}
	if got[len(got)-1] != '…' {
		t.Errorf("truncated text must end with an ellipsis, got %q", got[len(got)-1])
	}
}

func TestThinkingAckUsesCallback(t *testing.T) {
	ack := ThinkingAck("🤔 Thinking...")

	if !ack.UseCallback {
		t.Error("ack must set useCallback")
	}
	if ack.Template != nil {
		t.Error("ack must not carry a template")
	}
	if ack.Data["text"] != "🤔 Thinking..." {
		t.Errorf("unexpected ack data %+v", ack.Data)
	}
}

func TestErrorCallbackShapeIsDistinct(t *testing.T) {
	payload := NewErrorCallback("server error")

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["status"] != "ERROR" || decoded["message"] != "server error" {
		t.Errorf("unexpected error callback %v", decoded)
	}
	if _, ok := decoded["template"]; ok {
		t.Error("error callback must not look like a skill response")
	}
}

func TestSkillPayloadParsesInboundRequest(t *testing.T) {
	raw := `{
		"userRequest": {
			"user": {"id": "u-123", "type": "botUserKey"},
			"utterance": " /status ",
			"callbackUrl": "https://callback.example/abc"
		}
	}`

	var payload SkillPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.UserRequest.User.ID != "u-123" {
		t.Errorf("unexpected user id %q", payload.UserRequest.User.ID)
	}
	if payload.UserRequest.Utterance != " /status " {
		t.Errorf("utterance must arrive untrimmed, got %q", payload.UserRequest.Utterance)
	}
	if payload.UserRequest.CallbackURL != "https://callback.example/abc" {
		t.Errorf("unexpected callback url %q", payload.UserRequest.CallbackURL)
	}
}
