package detector

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrImageNotFound is returned when the image to analyse does not exist.
var ErrImageNotFound = errors.New("image file not found")

type poseMessage struct {
	Image string `json:"image"`
}

type toneMessage struct {
	Image         string `json:"image"`
	KeypointsText string `json:"keypoints_text"`
}

// Pose extracts body landmarks through the pose detector script.
type Pose struct {
	runner Runner
	script string
}

// NewPose binds the pose detector script to a runner.
func NewPose(runner Runner, script string) *Pose {
	return &Pose{runner: runner, script: script}
}

// Detect returns the raw landmark text printed by the detector.
func (p *Pose) Detect(ctx context.Context, imagePath string) (string, error) {
	encoded, err := encodeImage(imagePath)
	if err != nil {
		return "", err
	}
	return p.runner.Run(ctx, p.script, poseMessage{Image: encoded})
}

// Tone classifies skin tone through the skin tone detector script. The pose
// output is forwarded so the script can sample body regions.
type Tone struct {
	runner Runner
	script string
}

// NewTone binds the skin tone detector script to a runner.
func NewTone(runner Runner, script string) *Tone {
	return &Tone{runner: runner, script: script}
}

// Detect returns the raw tone text printed by the detector.
func (t *Tone) Detect(ctx context.Context, imagePath, keypointsText string) (string, error) {
	encoded, err := encodeImage(imagePath)
	if err != nil {
		return "", err
	}
	return t.runner.Run(ctx, t.script, toneMessage{Image: encoded, KeypointsText: keypointsText})
}

func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrImageNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
