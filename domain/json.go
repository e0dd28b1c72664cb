package domain

import "github.com/bytedance/sonic"

// JSON is the codec for item payloads. Map keys are sorted so a given item
// always serializes to the same bytes, and numbers inside free-form maps are
// kept as json.Number to avoid float rounding of large identifiers.
var JSON = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	UseNumber:        true,
}.Froze()
