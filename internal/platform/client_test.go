package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
)

func TestFetchDashboardPassesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/user/dashboard", r.URL.Path)
		json.NewEncoder(w).Encode(DashboardData{
			User:  DashboardUser{Email: "dora@example.com", HasSubscription: true},
			Usage: DashboardUsage{TotalCharacters: 10000, CharactersRemaining: 4000},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	require.NoError(t, err)

	data, err := client.FetchDashboard(context.Background(), "token-123")
	require.NoError(t, err)
	require.Equal(t, "Bearer token-123", gotAuth)
	require.Equal(t, int64(4000), data.Usage.CharactersRemaining)
	require.True(t, data.User.HasSubscription)
}

func TestFetchDashboardStripsDuplicateBearerPrefix(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(DashboardData{})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	require.NoError(t, err)

	_, err = client.FetchDashboard(context.Background(), "Bearer token-123")
	require.NoError(t, err)
	require.Equal(t, "Bearer token-123", gotAuth)
}

func TestGenerateSubmitsRequestAndDecodesAudioRef(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/voice/generate", r.URL.Path)

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "hello world", req.Text)
		require.Equal(t, "en", req.Language)

		json.NewEncoder(w).Encode(GenerateResponse{FilePath: "/audio/out.mp3"})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), "token", GenerateRequest{
		Text:       "hello world",
		Language:   "en",
		VoiceModel: "natural",
	})
	require.NoError(t, err)
	require.Equal(t, "/audio/out.mp3", resp.AudioRef())
}

func TestCloneVoiceStreamsMultipartForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/voice/upload", r.URL.Path)
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "owner-42", r.FormValue("user_id"))

		file, header, err := r.FormFile("voice_file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "sample.wav", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "riff bytes", string(content))

		json.NewEncoder(w).Encode(CloneVoiceResponse{Path: "/voices/owner-42/sample.wav"})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	require.NoError(t, err)

	resp, err := client.CloneVoice(context.Background(), "token", "owner-42", "sample.wav", strings.NewReader("riff bytes"))
	require.NoError(t, err)
	require.Equal(t, "/voices/owner-42/sample.wav", resp.Path)
}

func TestCloneVoiceRejectsMissingPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CloneVoiceResponse{})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	require.NoError(t, err)

	_, err = client.CloneVoice(context.Background(), "token", "owner", "sample.wav", strings.NewReader("riff"))
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestUpstreamErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantCode pkgerrors.Code
		wantMsg  string
	}{
		{"unauthorized with error field", http.StatusUnauthorized, `{"error":"token expired"}`, pkgerrors.CodeUnauthorized, "token expired"},
		{"not found with message field", http.StatusNotFound, `{"message":"no such user"}`, pkgerrors.CodeNotFound, "no such user"},
		{"bad request", http.StatusBadRequest, `{"error":"text too long"}`, pkgerrors.CodeValidation, "text too long"},
		{"opaque failure", http.StatusBadGateway, `not json`, pkgerrors.CodeDependency, "upstream returned status 502"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := NewClient(server.URL, server.Client())
			require.NoError(t, err)

			_, err = client.FetchDashboard(context.Background(), "token")
			require.Error(t, err)
			coded := pkgerrors.As(err)
			require.NotNil(t, coded)
			require.Equal(t, tc.wantCode, coded.Code())
			require.Equal(t, tc.wantMsg, coded.Message())
		})
	}
}

func TestNewClientRejectsEmptyBaseURL(t *testing.T) {
	_, err := NewClient("   ", nil)
	require.Error(t, err)
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/user/dashboard", r.URL.Path)
		json.NewEncoder(w).Encode(DashboardData{})
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/", server.Client())
	require.NoError(t, err)

	_, err = client.FetchDashboard(context.Background(), "token")
	require.NoError(t, err)
}
