package handler_test

import (
	"babelchat/backend/internal/api/handler"
	"babelchat/backend/internal/chathub"
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/rooms"
	"babelchat/backend/internal/session"
	"babelchat/backend/internal/storage"
	"babelchat/backend/internal/translation"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeGateway struct {
	mu   sync.Mutex
	fail bool
}

func (g *fakeGateway) setFail(v bool) {
	g.mu.Lock()
	g.fail = v
	g.mu.Unlock()
}

func (g *fakeGateway) Translate(ctx context.Context, text, source, target string) (string, error) {
	if models.NormalizeLanguage(source) == models.NormalizeLanguage(target) {
		return text, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return text, fmt.Errorf("%w: provider down", translation.ErrTranslationUnavailable)
	}
	return "[" + target + "] " + text, nil
}

func (g *fakeGateway) DetectLanguage(ctx context.Context, text string) string {
	return translation.DetectHeuristic(text)
}

type testServer struct {
	broker  *chathub.LocalBroker
	router  *gin.Engine
	gateway *fakeGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store := storage.NewStorageService(db, nil)
	require.NoError(t, store.AutoMigrate())

	broker := chathub.NewLocalBroker()
	hub := chathub.NewHub(broker, store, chathub.Options{RelistenDelay: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = sqlDB.Close()
	})
	<-hub.Ready()

	roomSvc, err := rooms.NewService(store, hub)
	require.NoError(t, err)
	gw := &fakeGateway{}
	translations := translation.NewService(translation.NewCache(store), gw, 4)
	sessions := session.NewController(hub, translations, roomSvc, store, 3*time.Second)

	r := gin.New()
	handler.NewHandler(store, roomSvc, hub, translations, gw, sessions, "test-secret").RegisterRoutes(r)
	return &testServer{broker: broker, router: r, gateway: gw}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

// signup creates a profile and returns its token and id.
func (s *testServer) signup(t *testing.T, name, lang string) (string, string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/profiles", "", gin.H{"display_name": name, "preferred_language": lang})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token   string         `json:"token"`
		Profile models.Profile `json:"profile"`
	}
	decode(t, w, &resp)
	return resp.Token, resp.Profile.ID
}

func (s *testServer) createRoom(t *testing.T, token, name string, public bool) models.Room {
	t.Helper()
	w := s.do(t, http.MethodPost, "/rooms", token, gin.H{"name": name, "is_public": public})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var room models.Room
	decode(t, w, &room)
	return room
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/rooms", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/profiles", "", gin.H{"display_name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/auth/profiles", "", gin.H{"display_name": "Ana", "preferred_language": "xx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token, id := s.signup(t, "Ana", "es")

	w = s.do(t, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.Profile
	decode(t, w, &me)
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "Ana", me.DisplayName)
	assert.Equal(t, "es", me.PreferredLanguage)

	w = s.do(t, http.MethodPatch, "/me", token, gin.H{"preferred_language": "FR"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &me)
	assert.Equal(t, "fr", me.PreferredLanguage)
	assert.Equal(t, "Ana", me.DisplayName)
}

func TestRoomFlow(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.signup(t, "Alice", "en")
	bob, _ := s.signup(t, "Bob", "es")

	secret := s.createRoom(t, alice, "Secret", false)
	lobby := s.createRoom(t, alice, "Lobby", true)
	assert.Len(t, secret.InviteCode, 8)

	w := s.do(t, http.MethodPost, "/rooms/"+secret.ID+"/join", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/rooms/missing/join", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/rooms/join", bob, gin.H{"invite_code": "WRONG123"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Invalid invite code"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/rooms/join", bob, gin.H{"invite_code": secret.InviteCode})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/rooms/"+lobby.ID+"/join", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/rooms", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine struct {
		Rooms []models.Room `json:"rooms"`
	}
	decode(t, w, &mine)
	assert.Len(t, mine.Rooms, 2)

	w = s.do(t, http.MethodGet, "/rooms/public", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var public struct {
		Rooms []models.RoomWithCount `json:"rooms"`
	}
	decode(t, w, &public)
	require.Len(t, public.Rooms, 1)
	assert.Equal(t, lobby.ID, public.Rooms[0].ID)
	assert.EqualValues(t, 2, public.Rooms[0].MemberCount)

	w = s.do(t, http.MethodPost, "/rooms/"+secret.ID+"/invite-code", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/rooms/"+lobby.ID+"/members/me", bob, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPost, "/rooms/"+lobby.ID+"/invite-code", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/rooms", bob, gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type historyResponse struct {
	Language string `json:"language"`
	Messages []struct {
		ID               string `json:"id"`
		Content          string `json:"content"`
		SourceLanguage   string `json:"source_language"`
		TranslatedText   string `json:"translated_text"`
		TranslationState string `json:"translation_state"`
		Fallback         bool   `json:"fallback"`
	} `json:"messages"`
}

func TestMessagesAreTranslatedPerViewer(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.signup(t, "Alice", "en")
	bob, _ := s.signup(t, "Bob", "es")
	outsider, _ := s.signup(t, "Eve", "en")
	room := s.createRoom(t, alice, "Lobby", true)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+room.ID+"/join", bob, nil).Code)

	w := s.do(t, http.MethodPost, "/rooms/"+room.ID+"/messages", alice, gin.H{"content": "Hello"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var posted models.Message
	decode(t, w, &posted)
	assert.Equal(t, "en", posted.SourceLanguage)

	w = s.do(t, http.MethodGet, "/rooms/"+room.ID+"/messages", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history historyResponse
	decode(t, w, &history)
	assert.Equal(t, "es", history.Language)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "[es] Hello", history.Messages[0].TranslatedText)
	assert.Equal(t, "translated", history.Messages[0].TranslationState)

	w = s.do(t, http.MethodGet, "/rooms/"+room.ID+"/messages?lang=en", bob, nil)
	decode(t, w, &history)
	assert.Equal(t, "not_needed", history.Messages[0].TranslationState)
	assert.Equal(t, "Hello", history.Messages[0].TranslatedText)

	w = s.do(t, http.MethodGet, "/rooms/"+room.ID+"/messages", outsider, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/rooms/"+room.ID+"/messages", alice, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryFallsBackWhenProviderDown(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.signup(t, "Alice", "en")
	room := s.createRoom(t, alice, "Lobby", true)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/rooms/"+room.ID+"/messages", alice, gin.H{"content": "Hello"}).Code)

	s.gateway.setFail(true)
	w := s.do(t, http.MethodGet, "/rooms/"+room.ID+"/messages?lang=de", alice, nil)
	var history historyResponse
	decode(t, w, &history)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "Hello", history.Messages[0].TranslatedText)
	assert.True(t, history.Messages[0].Fallback)

	// Nothing was cached, so the next read retries and succeeds.
	s.gateway.setFail(false)
	w = s.do(t, http.MethodGet, "/rooms/"+room.ID+"/messages?lang=de", alice, nil)
	decode(t, w, &history)
	assert.Equal(t, "[de] Hello", history.Messages[0].TranslatedText)
}

func TestTranslateEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/translate", "", gin.H{"content": "Hello", "sourceLocale": "en", "targetLocale": "es"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"translatedText":"[es] Hello","fallback":false}`, w.Body.String())

	s.gateway.setFail(true)
	w = s.do(t, http.MethodPost, "/translate", "", gin.H{"content": "Hello", "sourceLocale": "en", "targetLocale": "es"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"translatedText":"Hello","fallback":true}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/translate", "", gin.H{"content": "Hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDetectLanguageAndLanguages(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/detect-language", "", gin.H{"text": "こんにちは"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"locale":"ja"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/languages", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Languages []models.Language `json:"languages"`
	}
	decode(t, w, &resp)
	assert.Len(t, resp.Languages, len(models.SupportedLanguages))

	w = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

type wsFrame struct {
	Type     string               `json:"type"`
	Snapshot session.ViewSnapshot `json:"snapshot"`
	Error    string               `json:"error"`
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(wsFrame) bool) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f wsFrame
		require.NoError(t, conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

func TestWebSocketStreamsTranslatedView(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.signup(t, "Alice", "en")
	bob, _ := s.signup(t, "Bob", "es")
	room := s.createRoom(t, alice, "Lobby", true)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+room.ID+"/join", bob, nil).Code)

	srv := httptest.NewServer(s.router)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?room_id=" + room.ID + "&token=" + bob

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readUntil(t, conn, func(f wsFrame) bool { return f.Type == "snapshot" })
	assert.Equal(t, session.StateReady, first.Snapshot.State)
	assert.Equal(t, "es", first.Snapshot.Language)

	w := s.do(t, http.MethodPost, "/rooms/"+room.ID+"/messages", alice, gin.H{"content": "Hello"})
	require.Equal(t, http.StatusCreated, w.Code)

	got := readUntil(t, conn, func(f wsFrame) bool {
		return len(f.Snapshot.Messages) == 1 && f.Snapshot.Messages[0].TranslationState == session.Translated
	})
	msg := got.Snapshot.Messages[0]
	assert.Equal(t, "[es] Hello", msg.DisplayText)
	assert.Equal(t, "Alice", msg.SenderName)

	require.NoError(t, conn.WriteJSON(gin.H{"type": "toggle_original", "message_id": msg.ID}))
	readUntil(t, conn, func(f wsFrame) bool {
		return len(f.Snapshot.Messages) == 1 && f.Snapshot.Messages[0].DisplayText == "Hello"
	})

	require.NoError(t, conn.WriteJSON(gin.H{"type": "message", "content": "Hola a todos"}))
	readUntil(t, conn, func(f wsFrame) bool {
		return len(f.Snapshot.Messages) == 2 && f.Snapshot.Messages[1].Own
	})

	require.NoError(t, conn.WriteJSON(gin.H{"type": "bogus"}))
	errFrame := readUntil(t, conn, func(f wsFrame) bool { return f.Type == "error" })
	assert.Equal(t, "unknown frame type", errFrame.Error)
}

func TestWebSocketReconnectFrameResubscribes(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.signup(t, "Alice", "en")
	bob, _ := s.signup(t, "Bob", "en")
	room := s.createRoom(t, alice, "Lobby", true)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+room.ID+"/join", bob, nil).Code)

	srv := httptest.NewServer(s.router)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?room_id=" + room.ID + "&token=" + bob

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntil(t, conn, func(f wsFrame) bool { return f.Snapshot.Status == chathub.StatusSubscribed })

	s.broker.Fail(errors.New("connection reset"))
	failed := readUntil(t, conn, func(f wsFrame) bool { return f.Snapshot.Status == chathub.StatusChannelError })
	assert.Contains(t, failed.Snapshot.StatusError, "connection reset")

	require.NoError(t, conn.WriteJSON(gin.H{"type": "reconnect"}))
	readUntil(t, conn, func(f wsFrame) bool { return f.Snapshot.Status == chathub.StatusSubscribed })

	w := s.do(t, http.MethodPost, "/rooms/"+room.ID+"/messages", alice, gin.H{"content": "Still here"})
	require.Equal(t, http.StatusCreated, w.Code)
	got := readUntil(t, conn, func(f wsFrame) bool { return len(f.Snapshot.Messages) == 1 })
	assert.Equal(t, "Still here", got.Snapshot.Messages[0].DisplayText)
}

func TestWebSocketRejectsNonMembers(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.signup(t, "Alice", "en")
	eve, _ := s.signup(t, "Eve", "en")
	room := s.createRoom(t, alice, "Secret", false)

	w := s.do(t, http.MethodGet, "/ws?room_id="+room.ID, eve, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/ws", eve, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fixedStats struct{}

func (fixedStats) Stats() translation.ProxyStats {
	return translation.ProxyStats{Hits: 3, Misses: 1, HitRate: 75}
}

func TestTranslationStatsMountedOnlyWithProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handler.NewHandler(nil, nil, nil, nil, &fakeGateway{}, nil, "test-secret").RegisterRoutes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/translate/stats", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	h := handler.NewHandler(nil, nil, nil, nil, &fakeGateway{}, nil, "test-secret")
	h.Proxy = fixedStats{}
	r = gin.New()
	h.RegisterRoutes(r)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/translate/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hits":3,"misses":1,"errors":0,"hit_rate":75}`, w.Body.String())
}
