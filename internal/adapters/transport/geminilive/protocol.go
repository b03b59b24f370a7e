package geminilive

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
)

type clientMessage struct {
	Setup         *setupMessage  `json:"setup,omitempty"`
	ClientContent *clientContent `json:"clientContent,omitempty"`
	RealtimeInput *realtimeInput `json:"realtimeInput,omitempty"`
}

type setupMessage struct {
	Model                    string            `json:"model"`
	GenerationConfig         *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction        *content          `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}         `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

// blob.Data is base64 on the wire; encoding/json handles []byte that way.
type blob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type clientContent struct {
	Turns        []content `json:"turns"`
	TurnComplete bool      `json:"turnComplete"`
}

type realtimeInput struct {
	Audio *blob `json:"audio,omitempty"`
}

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	GoAway        *goAway          `json:"goAway,omitempty"`
	Error         *serverError     `json:"error,omitempty"`
}

type serverContent struct {
	ModelTurn           *content       `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft"`
}

type serverError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

func newSetupMessage(setup domain.LiveSetup) clientMessage {
	msg := &setupMessage{Model: normalizeModel(setup.Model)}

	config := &generationConfig{}
	for _, modality := range setup.Modalities {
		config.ResponseModalities = append(config.ResponseModalities, string(modality))
	}
	if voice := strings.TrimSpace(setup.Voice); voice != "" {
		config.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice}},
		}
	}
	if len(config.ResponseModalities) > 0 || config.SpeechConfig != nil {
		msg.GenerationConfig = config
	}

	if instruction := strings.TrimSpace(setup.SystemInstruction); instruction != "" {
		msg.SystemInstruction = &content{Parts: []part{{Text: instruction}}}
	}
	if setup.Transcription {
		msg.InputAudioTranscription = &struct{}{}
		msg.OutputAudioTranscription = &struct{}{}
	}

	return clientMessage{Setup: msg}
}

func newTextMessage(text string, turnComplete bool) clientMessage {
	return clientMessage{ClientContent: &clientContent{
		Turns:        []content{{Role: "user", Parts: []part{{Text: text}}}},
		TurnComplete: turnComplete,
	}}
}

func newAudioMessage(pcm []byte, mimeType string) clientMessage {
	return clientMessage{RealtimeInput: &realtimeInput{Audio: &blob{MIMEType: mimeType, Data: pcm}}}
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" || strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func decodeServerMessage(payload []byte) (domain.ServerMessage, error) {
	var raw serverMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.ServerMessage{}, fmt.Errorf("decode live message: %w", err)
	}

	var msg domain.ServerMessage
	msg.SetupComplete = raw.SetupComplete != nil

	if raw.Error != nil {
		msg.Error = strings.TrimSpace(raw.Error.Message)
		if msg.Error == "" {
			msg.Error = strings.TrimSpace(raw.Error.Status)
		}
		if msg.Error == "" {
			msg.Error = "unknown server error"
		}
	}

	if raw.GoAway != nil {
		timeLeft, err := time.ParseDuration(strings.TrimSpace(raw.GoAway.TimeLeft))
		if err != nil {
			timeLeft = 0
		}
		msg.GoAway = &timeLeft
	}

	if sc := raw.ServerContent; sc != nil {
		msg.TurnComplete = sc.TurnComplete
		msg.Interrupted = sc.Interrupted
		if sc.InputTranscription != nil {
			msg.InputTranscription = sc.InputTranscription.Text
		}
		if sc.OutputTranscription != nil {
			msg.OutputTranscription = sc.OutputTranscription.Text
		}
		if sc.ModelTurn != nil {
			var text strings.Builder
			for _, p := range sc.ModelTurn.Parts {
				text.WriteString(p.Text)
				if p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
					msg.Audio = append(msg.Audio, p.InlineData.Data...)
				}
			}
			msg.Text = text.String()
		}
	}

	return msg, nil
}

var errSetupRejected = errors.New("live setup rejected")
