package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/ashureev/nux-coach/internal/domain"
)

type fakeModel struct {
	got   []llms.MessageContent
	reply string
	err   error
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func testGeneratorConfig() GeneratorConfig {
	cfg := DefaultGeneratorConfig()
	cfg.RequestsPerSecond = 0
	return cfg
}

func TestChatGenerator_MapsRoles(t *testing.T) {
	t.Parallel()

	model := &fakeModel{reply: "  Klingt gut!  "}
	g := NewGenerator(model, testGeneratorConfig(), nil)

	text, err := g.Generate(context.Background(), []Message{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hallo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Klingt gut!", text)

	require.Len(t, model.got, 3)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.got[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.got[1].Role)
	assert.Equal(t, schema.ChatMessageTypeAI, model.got[2].Role)
	assert.Equal(t, int64(1), g.Stats().Requests)
}

func TestChatGenerator_Failures(t *testing.T) {
	t.Parallel()

	g := NewGenerator(&fakeModel{err: errors.New("quota")}, testGeneratorConfig(), nil)
	_, err := g.Generate(context.Background(), []Message{{Role: domain.RoleUser, Content: "hi"}})
	require.Error(t, err)

	g2 := NewGenerator(&fakeModel{reply: "   "}, testGeneratorConfig(), nil)
	_, err = g2.Generate(context.Background(), []Message{{Role: domain.RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, ErrEmptyCompletion)

	assert.Equal(t, int64(1), g.Stats().Failures)
}

func TestNewOpenAIGenerator_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIGenerator(DefaultGeneratorConfig(), nil)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func testTranscriber(t *testing.T, url string) *WhisperTranscriber {
	t.Helper()
	cfg := DefaultTranscriberConfig()
	cfg.BaseURL = url
	cfg.APIKey = "sk-test"
	cfg.Backoff = time.Millisecond
	w, err := NewWhisperTranscriber(cfg, nil)
	require.NoError(t, err)
	return w
}

func TestWhisperTranscriber_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "de", r.FormValue("language"))
		assert.Equal(t, "text", r.FormValue("response_format"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "audio.webm", hdr.Filename)
		assert.Equal(t, "RIFF", string(body))

		_, _ = w.Write([]byte("Ich habe 150 alte Kontakte\n"))
	}))
	defer srv.Close()

	res := testTranscriber(t, srv.URL).Transcribe(context.Background(), []byte("RIFF"), "")
	assert.True(t, res.Success)
	assert.Equal(t, "Ich habe 150 alte Kontakte", res.Text)
}

func TestWhisperTranscriber_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("hallo"))
	}))
	defer srv.Close()

	res := testTranscriber(t, srv.URL).Transcribe(context.Background(), []byte("x"), "a.webm")
	assert.True(t, res.Success)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWhisperTranscriber_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	res := testTranscriber(t, srv.URL).Transcribe(context.Background(), []byte("x"), "a.webm")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestWhisperTranscriber_EmptyAudio(t *testing.T) {
	t.Parallel()

	res := testTranscriber(t, "http://127.0.0.1:0").Transcribe(context.Background(), nil, "")
	assert.False(t, res.Success)
}
