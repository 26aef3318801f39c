package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/nux-coach/internal/conversation"
	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/identity"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCommand().Commands() {
		names[c.Name()] = true
		assert.NotEmpty(t, c.Short, c.Name())
	}
	for _, want := range []string{"chat", "analyze", "classify", "send"} {
		assert.True(t, names[want], want)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := run(t, "", "analyze", "--old", "150", "--new", "80", "--automation")
	require.NoError(t, err)

	var got struct {
		Analysis struct {
			TotalContacts        int64  `json:"totalContacts"`
			PotentialConversions int64  `json:"potentialConversions"`
			SuccessRate          string `json:"successRate"`
		} `json:"analysis"`
		RevenueFormatted string `json:"revenue_formatted"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, int64(230), got.Analysis.TotalContacts)
	assert.Equal(t, int64(28), got.Analysis.PotentialConversions)
	assert.Equal(t, "15-20%", got.Analysis.SuccessRate)
	assert.True(t, strings.HasSuffix(got.RevenueFormatted, " €"))

	_, err = run(t, "", "analyze", "--old", "-1")
	require.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "", "classify", "Ich", "habe", "150", "alte", "Kontakte")
	require.NoError(t, err)

	var got struct {
		Mode    domain.NuxMode     `json:"mode"`
		Profile domain.UserProfile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, domain.ModeReaktivierung, got.Mode.Type)
	require.NotNil(t, got.Profile.OldLeadsCount)
	assert.Equal(t, 150, *got.Profile.OldLeadsCount)
}

func TestChatCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	out, err := run(t, "Ich habe 150 alte Kontakte\n/context\n/exit\n", "chat", "--db", db, "--session", "cli-test")
	require.NoError(t, err)

	assert.Contains(t, out, "Session cli-test")
	assert.Contains(t, out, "NUX [reaktivierung/greeting]")
	assert.Contains(t, out, `"message_count": 2`)

	// The stored transcript is picked up again.
	out, err = run(t, "/context\n", "chat", "--db", db, "--session", "cli-test")
	require.NoError(t, err)
	assert.Contains(t, out, `"message_count": 2`)
}

func TestSendChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "s-42", r.Header.Get(identity.SessionHeaderName))

		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hallo", req["message"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(conversation.TurnResult{
			SessionID: "s-42",
			Message:   domain.ChatMessage{Role: domain.RoleAssistant, Content: "Hey!"},
			Mode:      domain.NuxMode{Type: domain.ModeCoaching},
		})
	}))
	defer srv.Close()

	result, err := sendChat(srv.Client(), srv.URL, "s-42", "hallo")
	require.NoError(t, err)
	assert.Equal(t, "Hey!", result.Message.Content)

	out, err := run(t, "", "send", "hallo", "--server", srv.URL, "--session", "s-42")
	require.NoError(t, err)
	assert.Contains(t, out, "[s-42] coaching")
}

func TestSendChat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := sendChat(srv.Client(), srv.URL, "", "hallo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
