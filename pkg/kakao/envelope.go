// Package kakao builds KakaoTalk skill-server envelopes and posts
// callback replies.
package kakao

// Version is the skill response schema version Kakao expects.
const Version = "2.0"

// maxTextLength is Kakao's simpleText balloon limit in characters.
const maxTextLength = 1000

// SkillPayload is the inbound webhook body, reduced to the fields the
// bridge reads.
type SkillPayload struct {
	UserRequest struct {
		User struct {
			ID         string            `json:"id"`
			Type       string            `json:"type"`
			Properties map[string]string `json:"properties,omitempty"`
		} `json:"user"`
		Utterance   string `json:"utterance"`
		CallbackURL string `json:"callbackUrl,omitempty"`
	} `json:"userRequest"`
}

// QuickReply is one tappable chip under a balloon. Action "message"
// resubmits MessageText as if the user typed it.
type QuickReply struct {
	Label       string `json:"label"`
	Action      string `json:"action"`
	MessageText string `json:"messageText"`
}

// SimpleText is a plain text balloon.
type SimpleText struct {
	Text string `json:"text"`
}

// Output is one entry in a template's outputs array.
type Output struct {
	SimpleText *SimpleText `json:"simpleText,omitempty"`
}

// Template carries the balloons and optional quick replies.
type Template struct {
	Outputs      []Output     `json:"outputs"`
	QuickReplies []QuickReply `json:"quickReplies,omitempty"`
}

// SkillResponse is the outbound envelope, both for the synchronous
// HTTP body and for the callback POST.
type SkillResponse struct {
	Version     string            `json:"version"`
	Template    *Template         `json:"template,omitempty"`
	UseCallback bool              `json:"useCallback,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

// ErrorCallback is the error shape posted to a callback URL when the
// background turn fails. Deliberately not a SkillResponse.
type ErrorCallback struct {
	Version string `json:"version"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Reply builds a one-balloon response with optional quick replies.
func Reply(text string, quickReplies ...QuickReply) SkillResponse {
	response := SkillResponse{
		Version: Version,
		Template: &Template{
			Outputs: []Output{{SimpleText: &SimpleText{Text: truncate(text)}}},
		},
	}
	if len(quickReplies) > 0 {
		response.Template.QuickReplies = quickReplies
	}
	return response
}

// MessageReply builds a quick reply that resubmits message verbatim.
func MessageReply(label, message string) QuickReply {
	return QuickReply{Label: label, Action: "message", MessageText: message}
}

// ThinkingAck tells Kakao to hold the balloon open and wait for the
// callback POST.
func ThinkingAck(text string) SkillResponse {
	return SkillResponse{
		Version:     Version,
		UseCallback: true,
		Data:        map[string]string{"text": text},
	}
}

// NewErrorCallback builds the error envelope for a failed background
// turn.
func NewErrorCallback(message string) ErrorCallback {
	return ErrorCallback{Version: Version, Status: "ERROR", Message: message}
}

// truncate clips text to Kakao's balloon limit.
func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTextLength {
		return text
	}
	return string(runes[:maxTextLength-1]) + "…"
}
