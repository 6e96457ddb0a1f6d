// Package media wraps the model provider's image, speech, and transcription
// endpoints behind a small service the HTTP surface exposes.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/attache-hq/attache/internal/logging"
)

// Service performs media generation and understanding.
type Service struct {
	client *openai.Client
	model  string
	log    *logging.Logger
}

// NewService creates a media service sharing the provider's client.
func NewService(client *openai.Client, model string, log *logging.Logger) *Service {
	return &Service{client: client, model: model, log: log.Sub("media")}
}

// GenerateImage renders a prompt into PNG bytes.
func (s *Service) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := s.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("generating image: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image response was empty")
	}

	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decoding image data: %w", err)
	}
	return img, nil
}

// DescribeImage answers a question about an image supplied as raw bytes.
func (s *Service) DescribeImage(ctx context.Context, image []byte, question string) (string, error) {
	if question == "" {
		question = "Describe this image."
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: question},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("describing image: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision response had no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Speak synthesizes text into MP3 audio.
func (s *Service) Speak(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: text,
		Voice: openai.VoiceAlloy,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading speech audio: %w", err)
	}
	return audio, nil
}

// Transcribe converts an uploaded audio stream into text. The filename hints
// the container format to the API.
func (s *Service) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("transcribing audio: %w", err)
	}
	return resp.Text, nil
}
