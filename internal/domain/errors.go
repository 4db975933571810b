package domain

import (
	"errors"
	"fmt"
)

// User-facing messages. Detailed causes are only logged.
const (
	MsgNameRequired      = "Name is required."
	MsgRoleRequired      = "Role is required."
	MsgBackgroundDataURL = "Background must be a data URL."
	MsgGenerationFailed  = "Failed to generate invitation."
	MsgBusy              = "Generation already in progress."
)

var (
	// ErrAssetLoad signals that a background image or secondary PDF could not be
	// fetched, decoded or parsed.
	ErrAssetLoad = errors.New("asset load failed")
	// ErrEncode signals a PNG or PDF serialization failure.
	ErrEncode = errors.New("encode failed")
	// ErrBusy signals that the client already has a generation in flight.
	ErrBusy = errors.New("generation already in progress")
	// ErrUnknownTemplate signals a request for a template that is not configured.
	ErrUnknownTemplate = errors.New("unknown template")
)

// ValidationError reports missing or invalid user input. Its message is safe to
// show to the user as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Generation stages reported by GenerationError.
const (
	StageRasterize  = "rasterize"
	StageBackground = "background"
	StageCompose    = "compose"
	StageRender     = "render"
	StageAttachment = "attachment"
	StageMerge      = "merge"
)

// GenerationError wraps a failure that happened while producing an artifact.
// Kind is one of ErrAssetLoad or ErrEncode; Err is the underlying cause.
type GenerationError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generate.%s: %v: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("generate.%s: %v", e.Stage, e.Kind)
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AssetLoadError wraps err as an asset failure in the given stage.
func AssetLoadError(stage string, err error) error {
	return &GenerationError{Stage: stage, Kind: ErrAssetLoad, Err: err}
}

// EncodeError wraps err as a serialization failure in the given stage.
func EncodeError(stage string, err error) error {
	return &GenerationError{Stage: stage, Kind: ErrEncode, Err: err}
}
