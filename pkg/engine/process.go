package engine

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"app/pkg/audio"

	"github.com/google/uuid"
)

const (
	defaultLoadTimeout  = 10 * time.Minute
	defaultSynthTimeout = 5 * time.Minute

	// a minute of 24kHz mono PCM16 is ~2.8MB; base64 inflates by 4/3
	maxWorkerLine = 256 << 20
)

// ProcessEngine talks to a long-lived inference worker subprocess over
// stdin/stdout JSON lines. The worker loads checkpoints once at startup
// and answers one synthesis request per line.
type ProcessEngine struct {
	cfg    *Config
	logger *slog.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser
	resps <-chan *workerResponse

	mu sync.Mutex // guards the request/response exchange framing
}

type workerRequest struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	SpeakerAudio []byte `json:"spk_audio"`
	EmotionAudio []byte `json:"emo_audio,omitempty"`
	Params       Params `json:"params"`
}

type workerResponse struct {
	ID           string `json:"id,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"code,omitempty"`
	Device       string `json:"device,omitempty"`
	ModelVersion string `json:"model_version,omitempty"`
	SampleRate   int    `json:"sample_rate,omitempty"`
	Channels     int    `json:"channels,omitempty"`
	Audio        []byte `json:"audio,omitempty"` // little-endian PCM16
}

// ProcessLoader returns a Loader that verifies checkpoints and starts the
// worker, handing back a Ready engine once the worker reports its model
// is on the device.
func ProcessLoader(cfg *Config, logger *slog.Logger) Loader {
	return func(ctx context.Context) (Engine, Info, error) {
		return loadProcessEngine(ctx, cfg, logger)
	}
}

func loadProcessEngine(ctx context.Context, cfg *Config, logger *slog.Logger) (Engine, Info, error) {
	if err := verifyCheckpoints(cfg); err != nil {
		return nil, Info{}, NewError(CodeLoadFailed, err)
	}

	loadTimeout := cfg.LoadTimeout
	if loadTimeout == 0 {
		loadTimeout = defaultLoadTimeout
	}

	args := append([]string{}, cfg.WorkerArgs...)
	args = append(args,
		"--model-dir", cfg.ModelDir,
		"--cfg-path", cfg.CfgPath,
		"--device", cfg.Device,
		"--fp16="+strconv.FormatBool(cfg.UseFP16),
		"--cuda-kernel="+strconv.FormatBool(cfg.UseCudaKernel),
		"--deepspeed="+strconv.FormatBool(cfg.UseDeepSpeed),
	)

	cmd := exec.Command(cfg.WorkerCmd, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, Info{}, NewError(CodeLoadFailed, fmt.Errorf("failed to open worker stdin: %w", err))
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, Info{}, NewError(CodeLoadFailed, fmt.Errorf("failed to open worker stdout: %w", err))
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, Info{}, NewError(CodeLoadFailed, fmt.Errorf("failed to open worker stderr: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return nil, Info{}, NewError(CodeLoadFailed, fmt.Errorf("failed to start inference worker: %w", err))
	}

	go logWorkerStderr(stderr, logger)

	resps := make(chan *workerResponse)

	go readWorkerResponses(stdout, resps, logger)

	// The handshake line arrives after the checkpoints have been brought
	// onto the accelerator, so this wait is the actual model load.
	select {
	case handshake, ok := <-resps:
		if !ok {
			_ = cmd.Process.Kill()

			return nil, Info{}, NewError(CodeLoadFailed, fmt.Errorf("inference worker exited before handshake"))
		}

		if handshake.Status != "ready" {
			_ = cmd.Process.Kill()

			return nil, Info{}, NewError(CodeLoadFailed, fmt.Errorf("inference worker failed to load: %s", handshake.Error))
		}

		e := &ProcessEngine{
			cfg:    cfg,
			logger: logger,
			cmd:    cmd,
			stdin:  stdin,
			resps:  resps,
		}

		info := Info{
			ModelVersion:  handshake.ModelVersion,
			Device:        handshake.Device,
			UseFP16:       cfg.UseFP16,
			UseCudaKernel: cfg.UseCudaKernel,
			UseDeepSpeed:  cfg.UseDeepSpeed,
		}

		return e, info, nil
	case <-time.After(loadTimeout):
		_ = cmd.Process.Kill()

		return nil, Info{}, NewError(CodeLoadFailed, fmt.Errorf("inference worker handshake timed out after %s", loadTimeout))
	case <-ctx.Done():
		_ = cmd.Process.Kill()

		return nil, Info{}, NewError(CodeLoadFailed, ctx.Err())
	}
}

func verifyCheckpoints(cfg *Config) error {
	if stat, err := os.Stat(cfg.ModelDir); err != nil || !stat.IsDir() {
		return fmt.Errorf("model directory %s is missing, download checkpoints first", cfg.ModelDir)
	}

	if _, err := os.Stat(cfg.CfgPath); err != nil {
		return fmt.Errorf("model config %s is missing: %w", cfg.CfgPath, err)
	}

	return nil
}

func logWorkerStderr(stderr io.Reader, logger *slog.Logger) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		logger.Info("inference worker", "line", scanner.Text())
	}
}

func readWorkerResponses(stdout io.Reader, out chan<- *workerResponse, logger *slog.Logger) {
	defer close(out)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 1024*1024), maxWorkerLine)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp workerResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			logger.Error("failed to parse inference worker response", "err", err)
			continue
		}

		out <- &resp
	}

	if err := scanner.Err(); err != nil {
		logger.Error("inference worker stdout closed", "err", err)
	}
}

// Synthesize sends one request and waits for its response. Callers
// serialize access through the queue; the internal mutex only protects
// the wire framing.
func (e *ProcessEngine) Synthesize(ctx context.Context, req *Request) (*audio.Waveform, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	synthTimeout := e.cfg.SynthTimeout
	if synthTimeout == 0 {
		synthTimeout = defaultSynthTimeout
	}

	wreq := &workerRequest{
		ID:           uuid.NewString(),
		Text:         req.Text,
		SpeakerAudio: req.ReferenceAudio,
		EmotionAudio: req.EmotionAudio,
		Params:       req.Params,
	}

	payload, err := json.Marshal(wreq)
	if err != nil {
		return nil, NewError(CodeUnknown, fmt.Errorf("failed to marshal worker request: %w", err))
	}

	payload = append(payload, '\n')

	if _, err := e.stdin.Write(payload); err != nil {
		return nil, NewError(CodeUnknown, fmt.Errorf("failed to write to inference worker: %w", err))
	}

	deadline := time.NewTimer(synthTimeout)
	defer deadline.Stop()

	// No hard interrupt on cancellation: once dispatched, the inference
	// runs to completion. Responses left behind by a timed-out request
	// are identified by their stale id and dropped, so one slow request
	// never desyncs the exchange for those after it.
	for {
		select {
		case resp, ok := <-e.resps:
			if !ok {
				return nil, NewError(CodeUnknown, fmt.Errorf("inference worker exited"))
			}

			if resp.ID != "" && resp.ID != wreq.ID {
				e.logger.Warn("discarding stale inference worker response", "id", resp.ID, "want", wreq.ID)
				continue
			}

			return e.parseResponse(resp)
		case <-deadline.C:
			return nil, NewError(CodeTimeout, fmt.Errorf("inference timed out after %s", synthTimeout))
		}
	}
}

func (e *ProcessEngine) parseResponse(resp *workerResponse) (*audio.Waveform, error) {
	if resp.Status != "ok" {
		return nil, classifyWorkerError(resp)
	}

	if len(resp.Audio) == 0 || resp.SampleRate == 0 {
		return nil, NewError(CodeInference, fmt.Errorf("inference worker returned no audio"))
	}

	channels := resp.Channels
	if channels == 0 {
		channels = 1
	}

	samples := make([]int16, len(resp.Audio)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(resp.Audio[2*i:]))
	}

	return &audio.Waveform{
		Samples:    samples,
		SampleRate: resp.SampleRate,
		Channels:   channels,
	}, nil
}

func classifyWorkerError(resp *workerResponse) error {
	msg := resp.Error
	if msg == "" {
		msg = "unknown error"
	}

	switch resp.Code {
	case "oom", "resource_exhausted":
		return NewError(CodeResourceExhausted, fmt.Errorf("inference worker: %s", msg))
	case "inference":
		return NewError(CodeInference, fmt.Errorf("inference worker: %s", msg))
	}

	if strings.Contains(strings.ToLower(msg), "out of memory") {
		return NewError(CodeResourceExhausted, fmt.Errorf("inference worker: %s", msg))
	}

	return NewError(CodeInference, fmt.Errorf("inference worker: %s", msg))
}

func (e *ProcessEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_ = e.stdin.Close()

	done := make(chan error, 1)
	go func() {
		done <- e.cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		_ = e.cmd.Process.Kill()

		return <-done
	}
}
