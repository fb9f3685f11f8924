package dialogue

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/procurement-caller/internal/llm"
	"github.com/jonathan/procurement-caller/internal/schemas"
	"github.com/jonathan/procurement-caller/internal/types"
)

// DefaultMarker prefixes the model's final utterance of a call.
const DefaultMarker = "[END_CALL]"

// Reply is one parsed utterance of the dialogue model.
type Reply struct {
	// Text is what the agent says next. For a terminal reply it is the
	// closing statement, possibly empty.
	Text string
	// Terminal is set when the reply started with the termination marker.
	Terminal bool
	// Extracted is the payload that followed the marker, nil when absent or unusable.
	Extracted *types.ExtractedData
	// ParseErr describes why Extracted is nil on a terminal reply.
	ParseErr *ExtractionParseError
}

// ParseReply inspects raw model output for the termination marker.
//
// A terminal reply has the form: marker, a JSON object, closing remarks.
// When the object cannot be split off, the whole remainder is the closing;
// when it can be split off but does not decode or validate, the text after
// it is still the closing. Extraction never prevents termination.
func ParseReply(raw, marker string) Reply {
	text := strings.TrimSpace(raw)
	if !startsWithMarker(text, marker) {
		return Reply{Text: text}
	}

	rest := strings.TrimSpace(strings.TrimPrefix(text, marker))
	reply := Reply{Terminal: true}

	object, closing, ok := llm.SplitJSONObject(rest)
	if !ok {
		reply.Text = rest
		reply.ParseErr = &ExtractionParseError{Message: "no JSON object after termination marker", Payload: rest}
		return reply
	}
	reply.Text = closing

	extracted, err := decodeExtracted(object)
	if err != nil {
		reply.ParseErr = err
		return reply
	}
	reply.Extracted = extracted
	return reply
}

// startsWithMarker reports whether text opens with marker as a whole token.
// A marker ending in a letter or digit must not run into another one, so
// "MARK" does not match "MARKET".
func startsWithMarker(text, marker string) bool {
	if marker == "" || !strings.HasPrefix(text, marker) {
		return false
	}
	next, size := utf8.DecodeRuneInString(text[len(marker):])
	if size == 0 {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(marker)
	return !(isWordRune(last) && isWordRune(next))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func decodeExtracted(object string) (*types.ExtractedData, *ExtractionParseError) {
	var doc any
	if err := json.Unmarshal([]byte(object), &doc); err != nil {
		return nil, &ExtractionParseError{Message: "invalid JSON payload", Payload: object, Cause: err}
	}

	schema := llm.OrderConfirmationSchema()
	validator, err := schemas.Cached(schema.Name, schema.JSONSchema())
	if err != nil {
		return nil, &ExtractionParseError{Message: "payload schema unavailable", Payload: object, Cause: err}
	}
	if err := validator.ValidateValue(doc); err != nil {
		return nil, &ExtractionParseError{Message: "payload does not match schema", Payload: object, Cause: err}
	}

	var data types.ExtractedData
	if err := json.Unmarshal([]byte(object), &data); err != nil {
		return nil, &ExtractionParseError{Message: "invalid JSON payload", Payload: object, Cause: err}
	}
	return &data, nil
}
