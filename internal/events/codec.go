package events

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

const (
	decodeErrorTemplateConstant         = "malformed event %s: %v"
	encodeErrorTemplateConstant         = "unable to encode event: %w"
	decoderConstructionTemplateConstant = "unable to construct event decoder: %w"
)

// DecodeError reports a stream message that could not be turned into a valid ChangeEvent.
type DecodeError struct {
	MessageIdentifier string
	Cause             error
}

func (decodeError DecodeError) Error() string {
	return fmt.Sprintf(decodeErrorTemplateConstant, decodeError.MessageIdentifier, decodeError.Cause)
}

// Unwrap exposes the underlying cause.
func (decodeError DecodeError) Unwrap() error {
	return decodeError.Cause
}

// DecodeChangeEvent converts flat stream fields into a validated ChangeEvent.
// Values are weakly typed so numbers transported as strings decode cleanly.
// Unknown fields are ignored.
func DecodeChangeEvent(messageIdentifier string, fields map[string]interface{}) (ChangeEvent, error) {
	event := ChangeEvent{}
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &event,
	})
	if decoderError != nil {
		return ChangeEvent{}, fmt.Errorf(decoderConstructionTemplateConstant, decoderError)
	}

	if decodeError := decoder.Decode(fields); decodeError != nil {
		return ChangeEvent{}, DecodeError{MessageIdentifier: messageIdentifier, Cause: decodeError}
	}

	event.Action = ActionKind(strings.ToLower(strings.TrimSpace(string(event.Action))))
	event.Repository = strings.TrimSpace(event.Repository)
	event.TargetRevision = strings.TrimSpace(event.TargetRevision)
	event.BaselineBranch = strings.TrimSpace(event.BaselineBranch)

	if validationError := event.Validate(); validationError != nil {
		return ChangeEvent{}, DecodeError{MessageIdentifier: messageIdentifier, Cause: validationError}
	}
	return event, nil
}

// EncodeChangeEvent flattens a ChangeEvent into stream fields.
func EncodeChangeEvent(event ChangeEvent) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if encodeError := mapstructure.Decode(event, &fields); encodeError != nil {
		return nil, fmt.Errorf(encodeErrorTemplateConstant, encodeError)
	}
	fields["action"] = string(event.Action)
	return fields, nil
}
