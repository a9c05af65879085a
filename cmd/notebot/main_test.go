package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTelegram serves one batch of updates and records sent messages.
type fakeTelegram struct {
	mu      sync.Mutex
	served  bool
	replies []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/botTEST/getUpdates":
		if f.served {
			w.Write([]byte(`{"ok":true,"result":[]}`))
			return
		}
		f.served = true
		w.Write([]byte(`{"ok":true,"result":[
			{"update_id":1,"message":{"message_id":1,"from":{"id":7},"date":1700000000,"text":"/start"}},
			{"update_id":2,"message":{"message_id":2,"from":{"id":7},"date":1700000001,"text":"/write_tag milk dairy"}},
			{"update_id":3,"message":{"message_id":3,"from":{"id":7},"date":1700000002,"text":"/write buy #milk"}},
			{"update_id":4,"message":{"message_id":4,"from":{"id":7},"date":1700000003,"text":"/read 1"}},
			{"update_id":5,"message":{"message_id":5,"from":{"id":7},"date":1700000004,"text":"/read x"}}
		]}`))
	case "/botTEST/sendMessage":
		f.replies = append(f.replies, r.URL.Query().Get("text"))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"ok":false,"description":"Not Found"}`))
	}
}

func (f *fakeTelegram) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replies...)
}

func setEnv(t *testing.T, apiURL string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bot.db")
	t.Setenv("BOT_ID", "TEST")
	t.Setenv("TELEGRAM_API_URL", apiURL)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_FILE", "")
	t.Setenv("POLL_INTERVAL", "1")
	t.Setenv("STATUS_ADDR", "")
	return dbPath
}

func TestServeHandlesABatch(t *testing.T) {
	tg := &fakeTelegram{}
	srv := httptest.NewServer(tg)
	defer srv.Close()
	setEnv(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	rootCmd.SetArgs([]string{"serve", "--env-file", ""})
	require.NoError(t, rootCmd.ExecuteContext(ctx))

	assert.Equal(t, []string{"note 1 saved", "buy #milk", "could not understand command"}, tg.sent())
}

func TestMigrateAndDeleteNote(t *testing.T) {
	setEnv(t, "http://127.0.0.1:0")

	rootCmd.SetArgs([]string{"migrate", "--env-file", ""})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	rootCmd.SetArgs([]string{"migrate", "--env-file", ""})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), "migrate is idempotent")

	rootCmd.SetArgs([]string{"delete-note", "1", "--env-file", ""})
	assert.Error(t, rootCmd.ExecuteContext(context.Background()), "deleting a missing note fails")

	rootCmd.SetArgs([]string{"delete-note", "abc", "--env-file", ""})
	assert.Error(t, rootCmd.ExecuteContext(context.Background()))
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	setEnv(t, "http://127.0.0.1:0")
	t.Setenv("BOT_ID", "")

	rootCmd.SetArgs([]string{"serve", "--env-file", ""})
	assert.Error(t, rootCmd.ExecuteContext(context.Background()))
}
