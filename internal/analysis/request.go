package analysis

import (
	"fmt"
	"time"

	"github.com/example/bodyfit/internal/bodyinfo"
	"github.com/example/bodyfit/internal/classifier"
)

// Mode selects which pipeline stages run and where persisted values come from.
type Mode string

const (
	// ModeAutomatic detects both fields from the image.
	ModeAutomatic Mode = "auto"
	// ModeManual trusts caller supplied body shape and skin tone.
	ModeManual Mode = "manual"
	// ModeHybrid keeps the caller body shape and detects the undertone.
	ModeHybrid Mode = "hybrid"
)

const defaultGender = "female"

const (
	labelNotDetected      = "Not detected"
	labelInvalidBodyShape = "Invalid body shape"
	labelInvalidUndertone = "Invalid undertone"
)

// Request is the input of one analysis call.
type Request struct {
	Mode      Mode
	ImagePath string
	UserID    string
	BodyShape string
	Gender    string
	SkinTone  string
}

// Saved summarises what was written to the user record.
type Saved struct {
	BodyShape string `json:"bodyShape"`
	Undertone string `json:"undertone"`
	Updated   bool   `json:"updated"`
}

// Outcome is returned to the client after a successful analysis.
type Outcome struct {
	RequestID       string           `json:"requestId"`
	BodyShapeResult classifier.Reply `json:"bodyShapeResult"`
	Saved           Saved            `json:"saved"`
}

// Status of a recorded analysis.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is what GET /analysis/:id returns.
type Record struct {
	RequestID string    `json:"requestId"`
	UserID    string    `json:"userId"`
	Mode      Mode      `json:"mode"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Outcome   *Outcome  `json:"outcome,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// manualInput is what manual and hybrid calls hand to the classifier in
// place of detector output.
type manualInput struct {
	BodyShape string `json:"body_shape"`
	Gender    string `json:"gender"`
	SkinTone  string `json:"skin_tone,omitempty"`
}

func (m Mode) usesImage() bool {
	return m == ModeAutomatic || m == ModeHybrid
}

func (r Request) validate() error {
	switch r.Mode {
	case ModeAutomatic, ModeManual, ModeHybrid:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrValidation, r.Mode)
	}
	if r.Mode.usesImage() && r.ImagePath == "" {
		return ErrFileNotFound
	}
	if r.UserID == "" {
		return ErrAuthenticationRequired
	}
	switch r.Mode {
	case ModeManual:
		if r.BodyShape == "" || r.SkinTone == "" {
			return fmt.Errorf("%w: body_shape and skin_tone", ErrValidation)
		}
	case ModeHybrid:
		if r.BodyShape == "" {
			return fmt.Errorf("%w: body_shape", ErrValidation)
		}
	}
	return nil
}

func (r Request) gender() string {
	if r.Gender == "" {
		return defaultGender
	}
	return r.Gender
}

func (r Request) classifierInput(landmarks, tone string) classifier.Input {
	switch r.Mode {
	case ModeManual:
		data := manualInput{BodyShape: r.BodyShape, Gender: r.gender(), SkinTone: r.SkinTone}
		return classifier.Input{Landmarks: data, Tone: data}
	case ModeHybrid:
		data := manualInput{BodyShape: r.BodyShape, Gender: r.gender()}
		return classifier.Input{Landmarks: data, Tone: tone, ImagePath: r.ImagePath}
	default:
		return classifier.Input{Landmarks: landmarks, Tone: tone, ImagePath: r.ImagePath}
	}
}

// resolve picks the values to persist: caller values are parsed strictly,
// model values go through extraction.
func (r Request) resolve(reply classifier.Reply) (*bodyinfo.BodyShape, *bodyinfo.Undertone) {
	var (
		shape bodyinfo.BodyShape
		tone  bodyinfo.Undertone
		okS   bool
		okT   bool
	)
	switch r.Mode {
	case ModeManual:
		shape, okS = bodyinfo.ParseBodyShape(r.BodyShape)
		tone, okT = bodyinfo.ParseUndertone(r.SkinTone)
	case ModeHybrid:
		shape, okS = bodyinfo.ParseBodyShape(r.BodyShape)
		tone, okT = bodyinfo.ExtractUndertone(reply)
	default:
		shape, okS = bodyinfo.ExtractBodyShape(reply)
		tone, okT = bodyinfo.ExtractUndertone(reply)
	}

	var shapePtr *bodyinfo.BodyShape
	var tonePtr *bodyinfo.Undertone
	if okS {
		shapePtr = &shape
	}
	if okT {
		tonePtr = &tone
	}
	return shapePtr, tonePtr
}

func (m Mode) summary(shape *bodyinfo.BodyShape, tone *bodyinfo.Undertone, updated bool) Saved {
	missingShape, missingTone := labelNotDetected, labelNotDetected
	switch m {
	case ModeManual:
		missingShape, missingTone = labelInvalidBodyShape, labelInvalidUndertone
	case ModeHybrid:
		missingShape = labelInvalidBodyShape
	}

	saved := Saved{BodyShape: missingShape, Undertone: missingTone, Updated: updated}
	if shape != nil {
		saved.BodyShape = string(*shape)
	}
	if tone != nil {
		saved.Undertone = string(*tone)
	}
	return saved
}
