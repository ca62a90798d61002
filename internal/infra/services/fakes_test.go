package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"voice-connector/internal/domain/apperrors"
	"voice-connector/internal/domain/dto"
)

// fakeBackend stands in for the OpenAI provider.
type fakeBackend struct {
	mu sync.Mutex

	transcript       string
	transcribeErr    error
	transcribedAudio []string

	threadSeq int
	threadErr error

	submitted []string
	submitErr error

	initialStatus dto.RunStatus
	pollStatuses  []dto.RunStatus
	pollCalls     int
	runErr        error
	runLastError  string
	cancelled     []string
	cancelErr     error

	replies   []dto.TranscriptMessage
	pages     []dto.MessagePage
	listAfter []string

	speechFailOn string
	spoken       []string
}

func (f *fakeBackend) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	data, _ := io.ReadAll(audio)
	f.mu.Lock()
	f.transcribedAudio = append(f.transcribedAudio, string(data))
	f.mu.Unlock()
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func (f *fakeBackend) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return "", f.threadErr
	}
	f.threadSeq++
	return fmt.Sprintf("thread_%d", f.threadSeq), nil
}

func (f *fakeBackend) threadsCreated() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threadSeq
}

func (f *fakeBackend) CreateUserMessage(ctx context.Context, threadID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, threadID+":"+text)
	return fmt.Sprintf("msg_user_%d", len(f.submitted)), nil
}

func (f *fakeBackend) CreateRun(ctx context.Context, threadID string) (dto.Run, error) {
	if f.runErr != nil {
		return dto.Run{}, f.runErr
	}
	status := f.initialStatus
	if status == "" {
		status = dto.RunStatusQueued
	}
	return dto.Run{ID: "run_1", ThreadID: threadID, Status: status}, nil
}

func (f *fakeBackend) RetrieveRun(ctx context.Context, threadID, runID string) (dto.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	status := dto.RunStatusCompleted
	if len(f.pollStatuses) > 0 {
		status = f.pollStatuses[0]
		if len(f.pollStatuses) > 1 {
			f.pollStatuses = f.pollStatuses[1:]
		}
	}
	return dto.Run{ID: runID, ThreadID: threadID, Status: status, LastError: f.runLastError}, nil
}

func (f *fakeBackend) CancelRun(ctx context.Context, threadID, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.cancelled = append(f.cancelled, threadID+"/"+runID)
	return f.cancelErr
}

func (f *fakeBackend) cancelledRuns() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

func (f *fakeBackend) ListMessagesAfter(ctx context.Context, threadID, afterID string) (dto.MessagePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listAfter = append(f.listAfter, afterID)
	if len(f.pages) > 0 {
		page := f.pages[0]
		f.pages = f.pages[1:]
		return page, nil
	}
	return dto.MessagePage{Messages: f.replies}, nil
}

func (f *fakeBackend) Speech(ctx context.Context, text string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speechFailOn != "" && text == f.speechFailOn {
		return nil, apperrors.Remote("speech synthesis", errors.New("tts unavailable"))
	}
	f.spoken = append(f.spoken, text)
	return io.NopCloser(strings.NewReader("mp3:" + text)), nil
}

type fakeDownloader struct {
	content string
	err     error
}

func (f *fakeDownloader) DownloadFile(ctx context.Context, fileID string, dst io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(dst, f.content)
	return err
}

type sentVoice struct {
	chatID  int64
	path    string
	content string
	// previousLeft is set when the file sent before this one still existed.
	previousLeft bool
}

// fakeChat records what the exchange sends, what each voice file held at
// send time and whether the previous file was already gone.
type fakeChat struct {
	mu       sync.Mutex
	voices   []sentVoice
	texts    []string
	actions  []string
	voiceErr error
}

func (f *fakeChat) SendText(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeChat) SendVoice(ctx context.Context, chatID int64, filePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, _ := os.ReadFile(filePath)
	sent := sentVoice{chatID: chatID, path: filePath, content: string(data)}
	if n := len(f.voices); n > 0 {
		_, err := os.Stat(f.voices[n-1].path)
		sent.previousLeft = err == nil
	}
	f.voices = append(f.voices, sent)
	return f.voiceErr
}

func (f *fakeChat) SendChatAction(ctx context.Context, chatID int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

type recordingDiscarder struct {
	mu        sync.Mutex
	discarded []string
}

func (d *recordingDiscarder) Discard(filePath string) {
	d.mu.Lock()
	d.discarded = append(d.discarded, filePath)
	d.mu.Unlock()
	_ = os.Remove(filePath)
}
