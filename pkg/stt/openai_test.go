package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedUpload struct {
	path     string
	model    string
	language string
	filename string
	header   []byte
}

func fakeOpenAI(t *testing.T, status int, body string, got *capturedUpload) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			got.path = r.URL.Path
			assert.NoError(t, r.ParseMultipartForm(32<<20))
			got.model = r.FormValue("model")
			got.language = r.FormValue("language")
			got.header = make([]byte, 12)
			if f, hdr, err := r.FormFile("file"); assert.NoError(t, err) {
				got.filename = hdr.Filename
				_, err = io.ReadFull(f, got.header)
				assert.NoError(t, err)
				f.Close()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_Recognize(t *testing.T) {
	var got capturedUpload
	srv := fakeOpenAI(t, http.StatusOK, `{"text": "hello world"}`, &got)

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	text, err := o.Recognize(context.Background(), recording(0.2))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	assert.True(t, strings.HasSuffix(got.path, "/audio/transcriptions"), got.path)
	assert.Equal(t, "whisper-1", got.model)
	assert.Empty(t, got.language)
	assert.Equal(t, "audio.wav", got.filename)
	assert.Equal(t, "RIFF", string(got.header[:4]))
	assert.Equal(t, "WAVE", string(got.header[8:12]))
}

func TestOpenAI_RecognizeWithLanguageAndModel(t *testing.T) {
	var got capturedUpload
	srv := fakeOpenAI(t, http.StatusOK, `{"text": "Bonjour"}`, &got)

	o, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1/", Model: "gpt-4o-transcribe", Language: "fr"})
	require.NoError(t, err)

	text, err := o.Recognize(context.Background(), recording(0.2))
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", text)
	assert.Equal(t, "gpt-4o-transcribe", got.model)
	assert.Equal(t, "fr", got.language)
}

func TestOpenAI_RecognizeReportsProgress(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK, `{"text": "hello"}`, nil)

	o, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	var got [][2]int
	ctx := WithProgress(context.Background(), func(done, total int) {
		got = append(got, [2]int{done, total})
	})
	_, err = o.Recognize(ctx, recording(0.2))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 1}, {1, 1}}, got)
}

func TestOpenAI_RecognizeEmptyTextIsNoMatch(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK, `{"text": "   "}`, nil)

	o, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	_, err = o.Recognize(context.Background(), recording(0.2))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestOpenAI_RecognizeAPIError(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusInternalServerError,
		`{"error": {"message": "Internal server error", "type": "server_error"}}`, nil)

	o, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	_, err = o.Recognize(context.Background(), recording(0.2))
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr), "got %v", err)
	assert.Equal(t, "openai", reqErr.Provider)
	assert.Contains(t, err.Error(), "500")
}

func TestOpenAI_RecognizeNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)

	o, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	_, err = o.Recognize(context.Background(), recording(0.2))
	var reqErr *RequestError
	assert.True(t, errors.As(err, &reqErr), "got %v", err)
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{})
	assert.Error(t, err)
}
