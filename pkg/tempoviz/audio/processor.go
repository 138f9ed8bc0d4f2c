package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/tempoviz/pkg/utils"
)

// DefaultSampleRate is the rate encoded inputs are decoded to.
const DefaultSampleRate = 44100

type ConvertWAVConfig struct {
	SampleRate int           // e.g. 22050, 44100, 48000
	FFmpegPath string        // defaults to "ffmpeg" on PATH
	Timeout    time.Duration // applied when ctx has no deadline
}

// IsWav reports whether path looks like a WAV file by extension.
func IsWav(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".wav" || ext == ".wave"
}

// ConvertToWAV decodes any ffmpeg-readable file into 16-bit PCM WAV at cfg.SampleRate
// and saves it to outputDir under the input's base name. Channel layout is kept so the
// reader can take channel 0.
func ConvertToWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, baseName+".wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		cfg.FFmpegPath,
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// Load returns the decoded buffer for path. WAV files are read directly; anything else
// is converted into tempDir first and the intermediate file removed afterwards.
func Load(ctx context.Context, path, tempDir string, cfg ConvertWAVConfig) (*Buffer, error) {
	if IsWav(path) {
		return ReadWav(path)
	}

	wavPath, err := ConvertToWAV(ctx, path, tempDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("audio conversion failed: %w", err)
	}
	defer utils.DeleteFile(wavPath)

	return ReadWav(wavPath)
}
