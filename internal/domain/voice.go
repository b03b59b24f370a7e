package domain

import "strings"

const (
	DefaultLiveModel = "gemini-2.0-flash-live-001"
	DefaultVoice     = "Puck"
)

// LiveVoices lists the prebuilt voices the live API accepts.
var LiveVoices = []string{"Puck", "Charon", "Kore", "Fenrir", "Aoede", "Leda", "Orus", "Zephyr"}

// ValidVoice matches case-insensitively and returns the canonical spelling.
func ValidVoice(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	for _, voice := range LiveVoices {
		if strings.EqualFold(voice, trimmed) {
			return voice, true
		}
	}
	return "", false
}
