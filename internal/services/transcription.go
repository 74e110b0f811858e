package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"siteops-backend/internal/metrics"
)

const (
	DefaultSTTBaseURL = "https://api.groq.com/openai/v1"
	DefaultSTTModel   = "whisper-large-v3"
)

var ErrVideoNotFound = errors.New("video file not found")

type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Transcription struct {
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Duration  float64   `json:"duration"`
	Segments  []Segment `json:"segments"`
	Timestamp string    `json:"timestamp"`
	VideoPath string    `json:"videoPath"`
	AudioPath string    `json:"audioPath"`
	Success   bool      `json:"success"`
	Cached    bool      `json:"cached,omitempty"`
}

// DependencyStatus reports whether the pipeline can run
type DependencyStatus struct {
	Ready  bool     `json:"ready"`
	Issues []string `json:"issues"`
}

// AudioExtractor turns a video into a mono 16 kHz mp3
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// FFmpegExtractor shells out to the ffmpeg binary
type FFmpegExtractor struct {
	Path string
}

func (f FFmpegExtractor) binary() string {
	if f.Path == "" {
		return "ffmpeg"
	}
	return f.Path
}

func (f FFmpegExtractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ac", "1",
		"-ar", "16000",
		"-f", "mp3",
		audioPath,
	}
	log.Printf("🔧 FFmpeg command: %s %s", f.binary(), strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.binary(), args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(string(output), 400))
	}
	return nil
}

// SpeechClient calls an OpenAI-compatible audio transcription endpoint
type SpeechClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewSpeechClient(apiKey, baseURL string) *SpeechClient {
	if baseURL == "" {
		baseURL = DefaultSTTBaseURL
	}
	return &SpeechClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   DefaultSTTModel,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *SpeechClient) Configured() bool {
	return c.apiKey != ""
}

type verboseTranscription struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Transcribe uploads an audio file and returns the verbose transcription
func (c *SpeechClient) Transcribe(ctx context.Context, audioPath string) (*Transcription, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("speech-to-text API key is not configured")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	fields := map[string]string{
		"model":           c.model,
		"response_format": "verbose_json",
		"language":        "en",
		"temperature":     "0",
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API returned status code %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result verboseTranscription
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	segments := result.Segments
	if segments == nil {
		segments = []Segment{}
	}
	return &Transcription{
		Text:     result.Text,
		Language: result.Language,
		Duration: result.Duration,
		Segments: segments,
	}, nil
}

// TranscriptionService runs the two-step video pipeline: extract audio,
// then send it to the speech API
type TranscriptionService struct {
	extractor AudioExtractor
	speech    *SpeechClient
	tempDir   string
	ffmpeg    string
	cache     *TranscriptCache
	now       func() time.Time
}

func NewTranscriptionService(extractor AudioExtractor, speech *SpeechClient, tempDir string, cache *TranscriptCache) *TranscriptionService {
	ffmpeg := ""
	if fe, ok := extractor.(FFmpegExtractor); ok {
		ffmpeg = fe.binary()
	}
	return &TranscriptionService{
		extractor: extractor,
		speech:    speech,
		tempDir:   tempDir,
		ffmpeg:    ffmpeg,
		cache:     cache,
		now:       time.Now,
	}
}

func (s *TranscriptionService) Cache() *TranscriptCache {
	return s.cache
}

// CheckDependencies makes sure the temp dir exists and the tools are available
func (s *TranscriptionService) CheckDependencies() DependencyStatus {
	issues := []string{}

	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		issues = append(issues, fmt.Sprintf("Could not create temp directory: %v", err))
	}
	if s.ffmpeg != "" {
		if _, err := exec.LookPath(s.ffmpeg); err != nil {
			issues = append(issues, fmt.Sprintf("ffmpeg not found: %v", err))
		}
	}
	if !s.speech.Configured() {
		issues = append(issues, "Speech-to-text API key not configured")
	}

	return DependencyStatus{Ready: len(issues) == 0, Issues: issues}
}

func (s *TranscriptionService) TranscribeVideo(ctx context.Context, videoPath string) (*Transcription, error) {
	if _, err := os.Stat(videoPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", filepath.Base(videoPath), ErrVideoNotFound)
		}
		return nil, err
	}

	signature, sigErr := FileSignature(videoPath)
	if sigErr == nil && s.cache != nil {
		if cached, ok := s.cache.Get(signature); ok {
			log.Printf("⚡ Transcript cache hit for %s", filepath.Base(videoPath))
			cached.Cached = true
			return cached, nil
		}
	}

	log.Println("🚀 Starting video transcription pipeline...")
	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	audioPath := filepath.Join(s.tempDir, fmt.Sprintf("audio_%d.mp3", s.now().UnixNano()))

	log.Println("📹 Step 1: Converting video to audio...")
	started := time.Now()
	err := s.extractor.ExtractAudio(ctx, videoPath, audioPath)
	metrics.RecordExternalCall("ffmpeg", time.Since(started), err)
	defer func() {
		if rmErr := os.Remove(audioPath); rmErr == nil {
			log.Println("🗑️  Temporary audio file deleted")
		}
	}()
	if err != nil {
		return nil, fmt.Errorf("audio extraction failed: %w", err)
	}

	log.Println("🎙️  Step 2: Transcribing audio to text...")
	started = time.Now()
	result, err := s.speech.Transcribe(ctx, audioPath)
	metrics.RecordExternalCall("speech_to_text", time.Since(started), err)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	result.Timestamp = s.now().UTC().Format(time.RFC3339)
	result.VideoPath = videoPath
	result.AudioPath = audioPath
	result.Success = true

	if sigErr == nil && s.cache != nil {
		s.cache.Set(signature, result)
	}

	log.Printf("✅ Transcription completed: %d characters", len(result.Text))
	return result, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
