package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ConvertPath transcodes the audio file at inputPath into the container
// named by outExt, with extra codec args appended before the output path.
func (c *Client) ConvertPath(ctx context.Context, inputPath string, outExt string, codecArgs []string) ([]byte, error) {
	outputPath := path.Join(c.TmpDir(), prefix+uuid.NewString()+"."+outExt)

	defer os.Remove(outputPath)

	args := []string{"-i", inputPath, "-nostats", "-loglevel", "error", "-vn"}
	args = append(args, codecArgs...)
	args = append(args, outputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("failed to run ffmpeg: %w: %s", err, msg)
		}

		return nil, fmt.Errorf("failed to run ffmpeg: %w", err)
	}

	output, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read output file: %w", err)
	}

	return output, nil
}

// Convert is ConvertPath over in-memory input.
func (c *Client) Convert(ctx context.Context, data []byte, outExt string, codecArgs []string) ([]byte, error) {
	inputPath := path.Join(c.TmpDir(), prefix+uuid.NewString())

	err := os.WriteFile(inputPath, data, 0644)
	if err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	defer os.Remove(inputPath)

	return c.ConvertPath(ctx, inputPath, outExt, codecArgs)
}
