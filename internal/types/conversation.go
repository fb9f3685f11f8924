package types

import "time"

// Language selects the prompts and the speech-recognition locale of a call.
type Language string

// Supported call languages.
const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
)

// Valid reports whether the language is supported.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageSpanish
}

// Locale returns the BCP-47 locale used for text-to-speech and speech recognition.
func (l Language) Locale() string {
	if l == LanguageSpanish {
		return "es-ES"
	}
	return "en-US"
}

// Role tags a conversation turn for the dialogue model.
type Role string

// Conversation roles.
const (
	RoleModel Role = "model" // the purchasing agent
	RoleUser  Role = "user"  // the supplier
)

// Turn is one entry of the dialogue model's context window.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Speaker tags a transcript entry for display.
type Speaker string

// Transcript speakers.
const (
	SpeakerAgent    Speaker = "agent"
	SpeakerSupplier Speaker = "supplier"
)

// TranscriptEntry is a timestamped line of the call transcript.
type TranscriptEntry struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ExtractedData is the structured result obtained at the end of a call.
type ExtractedData struct {
	ConfirmationID   *string `json:"confirmationId"`
	DeliveryEstimate *string `json:"deliveryEstimate"`
}
