package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/reshetovitsme/rss-magazine/internal/modules/magazine/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMagazine() *domain.Magazine {
	return &domain.Magazine{
		ID:    "mag-1",
		Title: "Daily",
		Date:  "2026-10-14",
		Sections: []*domain.Section{
			{Title: "Tech", Articles: []*domain.Article{{ID: "a1"}, {ID: "a2"}}},
			{Title: "News", Articles: []*domain.Article{{ID: "a3"}}},
		},
	}
}

func TestSummary(t *testing.T) {
	text := Summary(sampleMagazine())
	assert.Contains(t, text, "Daily 2026-10-14")
	assert.Contains(t, text, "3 articles from 2 feeds")
	assert.Contains(t, text, "• Tech (2)")
	assert.Contains(t, text, "• News (1)")
}

type fakeAPI struct {
	mu     sync.Mutex
	paths  []string
	chatID string
	text   string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.chatID = r.FormValue("chat_id")
	f.text = r.FormValue("text")
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
}

func TestNotifier_Notify(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	n, err := New(&config.Config{
		TelegramBotToken: "123:abc",
		TelegramChatID:   42,
		TelegramAPIURL:   srv.URL,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), sampleMagazine()))

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"/bot123:abc/sendMessage"}, api.paths)
	assert.Equal(t, "42", api.chatID)
	assert.Equal(t, Summary(sampleMagazine()), api.text)
}

func TestNotifier_Notify_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	t.Cleanup(srv.Close)

	n, err := New(&config.Config{TelegramBotToken: "123:abc", TelegramChatID: 7, TelegramAPIURL: srv.URL}, nil)
	require.NoError(t, err)

	assert.Error(t, n.Notify(context.Background(), sampleMagazine()))
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, NopNotifier{}.Notify(context.Background(), sampleMagazine()))
}
