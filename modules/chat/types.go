package chat

import (
	"errors"
	"unicode/utf8"
)

// Validation constants
const (
	MaxChannelNameLength   = 100
	MaxMessageLength       = 5000
	MaxAttachmentRefLength = 500
)

// Validation errors
var (
	ErrChannelNameEmpty     = errors.New("channel name cannot be empty")
	ErrChannelNameTooLong   = errors.New("channel name exceeds maximum length")
	ErrChannelNameInvalid   = errors.New("channel name contains invalid characters")
	ErrMessageEmpty         = errors.New("message text cannot be empty")
	ErrMessageTooLong       = errors.New("message exceeds maximum length")
	ErrMessageInvalid       = errors.New("message contains invalid characters")
	ErrAttachmentRefTooLong = errors.New("attachment reference exceeds maximum length")
	ErrSenderRequired       = errors.New("sender id is required")
	ErrChannelRequired      = errors.New("channel id is required")
)

// IsValidationError reports whether err is one of the input validation
// errors, so transports can map it to a 400 instead of a 500.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrChannelNameEmpty, ErrChannelNameTooLong, ErrChannelNameInvalid,
		ErrMessageEmpty, ErrMessageTooLong, ErrMessageInvalid,
		ErrAttachmentRefTooLong, ErrSenderRequired, ErrChannelRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ValidateChannelName validates a channel name.
func ValidateChannelName(name string) error {
	if name == "" {
		return ErrChannelNameEmpty
	}
	if len(name) > MaxChannelNameLength {
		return ErrChannelNameTooLong
	}
	if !utf8.ValidString(name) {
		return ErrChannelNameInvalid
	}
	return nil
}

// ValidateMessageText validates message text. Text may be empty when an
// attachment reference is present.
func ValidateMessageText(text, attachmentRef string) error {
	if text == "" && attachmentRef == "" {
		return ErrMessageEmpty
	}
	if len(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(text) {
		return ErrMessageInvalid
	}
	if len(attachmentRef) > MaxAttachmentRefLength {
		return ErrAttachmentRefTooLong
	}
	return nil
}
