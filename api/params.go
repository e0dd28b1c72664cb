package api

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"kanban-api/domain"
)

const (
	maxBodySize    = 1 << 20 // 1 MiB
	itemWrapperKey = "kanban_item"
)

type rawObject map[string]sonic.NoCopyRawMessage

// readObject decodes a JSON object body. An empty body is an empty object.
func readObject(body io.Reader) (rawObject, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", errMalformedBody, maxBodySize)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return rawObject{}, nil
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", errMalformedBody)
	}
	obj := rawObject{}
	if err := domain.JSON.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return obj, nil
}

// itemFields returns the item attributes of a body, which may be wrapped in
// {"kanban_item": {...}} or sent flat.
func itemFields(obj rawObject) (rawObject, error) {
	raw, ok := obj[itemWrapperKey]
	if !ok {
		return obj, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: %s must be an object", errMalformedBody, itemWrapperKey)
	}
	inner := rawObject{}
	if err := domain.JSON.Unmarshal(trimmed, &inner); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return inner, nil
}

// parseItemParams extracts the permitted attributes. Unknown keys are
// dropped; only an absent or empty attribute set is rejected. Values that
// cannot be cast are reported as validation errors.
func parseItemParams(obj rawObject) (domain.ItemParams, error) {
	fields, err := itemFields(obj)
	if err != nil {
		return domain.ItemParams{}, err
	}
	if len(fields) == 0 {
		return domain.ItemParams{}, fmt.Errorf("%w: param is missing or the value is empty: %s", errMalformedBody, itemWrapperKey)
	}
	var (
		p    domain.ItemParams
		ok   bool
		verr = domain.NewValidationError()
	)
	for key, raw := range fields {
		switch key {
		case "funnel_id":
			// An uncastable funnel id reads as no funnel.
			id, _ := domain.ParseID(raw)
			p.FunnelID = &id
		case "funnel_stage":
			stage := stringValue(raw)
			p.FunnelStage = &stage
		case "position":
			if n, ok := domain.ParseID(raw); ok {
				pos := int(n)
				p.Position = &pos
			} else {
				verr.Add(key, "is not a number")
			}
		case "conversation_display_id":
			p.ConversationDisplayID, ok = optionalInt(raw)
			if !ok {
				verr.Add(key, "is not a number")
			}
		case "timer_duration":
			p.TimerDuration, ok = optionalInt(raw)
			if !ok {
				verr.Add(key, "is not a number")
			}
		case "timer_started_at":
			p.TimerStartedAt, ok = optionalTime(raw)
			if !ok {
				verr.Add(key, "is not a valid datetime")
			}
		case "custom_attributes":
			var attrs map[string]any
			if domain.IsNull(raw) || domain.JSON.Unmarshal(raw, &attrs) != nil || attrs == nil {
				continue
			}
			p.CustomAttributes = attrs
		case "item_details":
			details, err := domain.ParseItemDetails(raw)
			if err != nil {
				return domain.ItemParams{}, fmt.Errorf("%w: item_details: %v", errMalformedBody, err)
			}
			p.ItemDetails = &details
		}
	}
	return p, verr.OrNil()
}

func stringValue(raw []byte) string {
	var s string
	if domain.JSON.Unmarshal(raw, &s) == nil {
		return s
	}
	if domain.IsNull(raw) {
		return ""
	}
	trimmed := strings.TrimSpace(string(raw))
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return trimmed
	}
	return ""
}

func optionalInt(raw []byte) (domain.Optional[int64], bool) {
	if domain.IsNull(raw) || isBlankString(raw) {
		return domain.Null[int64](), true
	}
	n, ok := domain.ParseID(raw)
	if !ok {
		return domain.Optional[int64]{}, false
	}
	return domain.Some(n), true
}

func optionalTime(raw []byte) (domain.Optional[time.Time], bool) {
	if domain.IsNull(raw) || isBlankString(raw) {
		return domain.Null[time.Time](), true
	}
	var s string
	if err := domain.JSON.Unmarshal(raw, &s); err != nil {
		return domain.Optional[time.Time]{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return domain.Optional[time.Time]{}, false
	}
	return domain.Some(t.UTC()), true
}

func isBlankString(raw []byte) bool {
	var s string
	return domain.JSON.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) == ""
}

type positionEntry struct {
	ID          sonic.NoCopyRawMessage `json:"id"`
	Position    sonic.NoCopyRawMessage `json:"position"`
	FunnelStage sonic.NoCopyRawMessage `json:"funnel_stage"`
}

// parsePositions reads the reorder batch from {"positions": [...]}.
func parsePositions(obj rawObject) ([]domain.PositionUpdate, error) {
	raw, found := obj["positions"]
	if !found || domain.IsNull(raw) {
		return nil, fmt.Errorf("%w: param is missing or the value is empty: positions", errMalformedBody)
	}
	var entries []positionEntry
	if err := domain.JSON.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: positions must be an array of objects", errMalformedBody)
	}
	verr := domain.NewValidationError()
	out := make([]domain.PositionUpdate, 0, len(entries))
	for i, e := range entries {
		field := "positions[" + strconv.Itoa(i) + "]"
		id, idOK := domain.ParseID(e.ID)
		if !idOK {
			verr.Add(field+".id", "is not a number")
		}
		pos, posOK := domain.ParseID(e.Position)
		if !posOK {
			verr.Add(field+".position", "is not a number")
		}
		out = append(out, domain.PositionUpdate{ID: id, Position: int(pos), FunnelStage: stringValue(e.FunnelStage)})
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// stageParam reads funnel_stage from the body, flat or wrapped.
func stageParam(obj rawObject) (string, bool) {
	if raw, found := obj["funnel_stage"]; found {
		return stringValue(raw), true
	}
	if inner, err := itemFields(obj); err == nil {
		if raw, found := inner["funnel_stage"]; found {
			return stringValue(raw), true
		}
	}
	return "", false
}
