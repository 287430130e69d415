package engine

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/tatianab/buckshot/internal/models"
)

//go:embed prompts/instruction.txt
var instructionPrompt string

//go:embed prompts/observation.txt
var observationPrompt string

//go:embed prompts/summarize_history.txt
var summarizeHistoryPrompt string

var (
	observationTmpl = template.Must(template.New("observation").Parse(observationPrompt))
	summarizeTmpl   = template.Must(template.New("summarize_history").Parse(summarizeHistoryPrompt))
)

var ErrEmptyResponse = errors.New("no content returned from Gemini")

// keepTurns is how many recent exchanges stay verbatim in the chat once
// the history is summarized.
const keepTurns = 3

// Engine asks Gemini for the next move, keeping the whole conversation
// like a player who remembers earlier rounds.
type Engine struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	chat       *genai.ChatSession
	maxHistory int
	summary    string
	log        *zap.Logger
}

// Options tune the model. Zero values keep the model's defaults.
type Options struct {
	Model       string
	Temperature float32
	// MaxHistory is the number of exchanges kept before older ones are
	// summarized. Zero keeps everything.
	MaxHistory int
	Logger     *zap.Logger
}

func NewEngine(ctx context.Context, apiKey string, opts Options) (*Engine, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	name := opts.Model
	if name == "" {
		name = "gemini-2.5-flash"
	}
	model := client.GenerativeModel(name)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instructionPrompt)}}
	if opts.Temperature > 0 {
		model.SetTemperature(opts.Temperature)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		client:     client,
		model:      model,
		chat:       model.StartChat(),
		maxHistory: opts.MaxHistory,
		log:        log.With(zap.String("model", name)),
	}, nil
}

func (e *Engine) Close() error {
	return e.client.Close()
}

// Decide sends the table to the model and returns its full reply.
// feedback, when set, tells the model why its previous command failed.
func (e *Engine) Decide(ctx context.Context, state models.GameState, feedback string) (string, error) {
	if e.maxHistory > 0 && len(e.chat.History) > 2*e.maxHistory {
		if err := e.SummarizeHistory(ctx); err != nil {
			e.log.Warn("Failed to summarize history", zap.Error(err))
		}
	}

	obs, err := RenderObservation(state, feedback)
	if err != nil {
		return "", err
	}
	resp, err := e.chat.SendMessage(ctx, genai.Text(obs))
	if err != nil {
		return "", err
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	e.log.Debug("Model replied", zap.Int("history", len(e.chat.History)))
	return text, nil
}

// SummarizeHistory folds all but the last few exchanges into a short note
// and restarts the chat from it.
func (e *Engine) SummarizeHistory(ctx context.Context) error {
	old, recent := splitHistory(e.chat.History, keepTurns)
	if len(old) == 0 {
		return nil
	}

	var buf bytes.Buffer
	data := struct {
		CurrentSummary string
		NewEvents      string
	}{
		CurrentSummary: e.summary,
		NewEvents:      historyText(old),
	}
	if err := summarizeTmpl.Execute(&buf, data); err != nil {
		return err
	}

	resp, err := e.model.GenerateContent(ctx, genai.Text(buf.String()))
	if err != nil {
		return err
	}
	text, err := responseText(resp)
	if err != nil {
		return fmt.Errorf("summarization: %w", err)
	}

	e.summary = strings.TrimSpace(text)
	e.chat.History = append([]*genai.Content{
		{Role: "user", Parts: []genai.Part{genai.Text("Notes on the game so far: " + e.summary)}},
		{Role: "model", Parts: []genai.Part{genai.Text("Noted.")}},
	}, recent...)
	e.log.Info("Summarized history", zap.Int("folded", len(old)), zap.Int("kept", len(recent)))
	return nil
}

// RenderObservation formats the table for the model.
func RenderObservation(state models.GameState, feedback string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		State    models.GameState
		Feedback string
	}{state, feedback}
	if err := observationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseAction extracts the command after the last "Action:" marker. The
// whole reply is used when the marker is missing.
func ParseAction(response string) string {
	action := response
	if i := strings.LastIndex(response, "Action:"); i >= 0 {
		action = response[i+len("Action:"):]
	}
	for _, line := range strings.Split(action, "\n") {
		line = strings.Trim(line, " \t\r`*")
		if line != "" {
			return line
		}
	}
	return ""
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// splitHistory separates the exchanges to summarize from the last keep
// exchanges. An exchange is a user message and the model's reply.
func splitHistory(history []*genai.Content, keep int) (old, recent []*genai.Content) {
	n := len(history) - 2*keep
	if n <= 0 {
		return nil, history
	}
	if n%2 == 1 {
		n--
	}
	return history[:n], history[n:]
}

func historyText(history []*genai.Content) string {
	var sb strings.Builder
	for _, c := range history {
		label := "Table"
		if c.Role == "model" {
			label = "Move"
		}
		for _, part := range c.Parts {
			if text, ok := part.(genai.Text); ok {
				fmt.Fprintf(&sb, "%s: %s\n", label, strings.TrimSpace(string(text)))
			}
		}
	}
	return sb.String()
}
