package translation_test

import (
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/translation"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var hello = models.Message{ID: "m1", RoomID: "r1", SenderID: "alice", Content: "Hello", SourceLanguage: "en"}

func isTranslation(messageID, lang, text string) interface{} {
	return mock.MatchedBy(func(tr *models.MessageTranslation) bool {
		return tr.MessageID == messageID && tr.TargetLanguage == lang && tr.TranslatedContent == text
	})
}

func TestResolve_MissTranslatesAndCaches(t *testing.T) {
	store := new(MockStore)
	gw := new(MockTranslator)
	store.On("GetTranslation", "m1", "es").Return("", false, nil)
	gw.On("Translate", "Hello", "en", "es").Return("Hola", nil).Once()
	store.On("SaveTranslation", isTranslation("m1", "es", "Hola")).Return(true, nil).Once()
	svc := translation.NewService(translation.NewCache(store), gw, 4)

	res := svc.Resolve(context.Background(), hello, "es")

	assert.Equal(t, translation.Result{Text: "Hola"}, res)
	store.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestResolve_CacheHitSkipsGateway(t *testing.T) {
	store := new(MockStore)
	gw := new(MockTranslator)
	store.On("GetTranslation", "m1", "es").Return("Hola", true, nil)
	svc := translation.NewService(translation.NewCache(store), gw, 4)

	res := svc.Resolve(context.Background(), hello, "es")

	assert.Equal(t, "Hola", res.Text)
	assert.True(t, res.FromCache)
	gw.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_SameLanguageNotNeeded(t *testing.T) {
	store := new(MockStore)
	gw := new(MockTranslator)
	svc := translation.NewService(translation.NewCache(store), gw, 4)

	res := svc.Resolve(context.Background(), hello, "en-US")

	assert.True(t, res.NotNeeded)
	assert.Equal(t, "Hello", res.Text)
	store.AssertNotCalled(t, "GetTranslation", mock.Anything, mock.Anything)
}

func TestResolve_FailureIsNotCached(t *testing.T) {
	store := new(MockStore)
	gw := new(MockTranslator)
	store.On("GetTranslation", "m1", "fr").Return("", false, nil)
	gw.On("Translate", "Hello", "en", "fr").Return("Hello", fmt.Errorf("%w: timeout", translation.ErrTranslationUnavailable))
	svc := translation.NewService(translation.NewCache(store), gw, 4)

	res := svc.Resolve(context.Background(), hello, "fr")

	assert.Equal(t, "Hello", res.Text)
	assert.True(t, res.Fallback)
	store.AssertNotCalled(t, "SaveTranslation", mock.Anything)
}

func TestResolve_CacheLookupErrorIsAMiss(t *testing.T) {
	store := new(MockStore)
	gw := new(MockTranslator)
	store.On("GetTranslation", "m1", "de").Return("", false, errors.New("db down"))
	gw.On("Translate", "Hello", "en", "de").Return("Hallo", nil)
	store.On("SaveTranslation", mock.Anything).Return(false, errors.New("db down"))
	svc := translation.NewService(translation.NewCache(store), gw, 4)

	res := svc.Resolve(context.Background(), hello, "de")

	assert.Equal(t, translation.Result{Text: "Hallo"}, res, "a failed cache write still shows the translation")
}

func TestLookup(t *testing.T) {
	store := new(MockStore)
	store.On("GetTranslation", "m1", "es").Return("Hola", true, nil)
	store.On("GetTranslation", "m1", "ja").Return("", false, nil)
	svc := translation.NewService(translation.NewCache(store), new(MockTranslator), 4)

	text, ok := svc.Lookup(context.Background(), hello, "es")
	assert.True(t, ok)
	assert.Equal(t, "Hola", text)

	_, ok = svc.Lookup(context.Background(), hello, "ja")
	assert.False(t, ok)

	text, ok = svc.Lookup(context.Background(), hello, "en")
	assert.True(t, ok)
	assert.Equal(t, "Hello", text)
}

func TestBatchTranslate(t *testing.T) {
	msgs := []models.Message{
		{ID: "m1", Content: "Hello", SourceLanguage: "en"},
		{ID: "m2", Content: "Good night", SourceLanguage: "en"},
		{ID: "m3", Content: "Hola", SourceLanguage: "es"},
		{ID: "m4", Content: "Thanks", SourceLanguage: "en"},
	}
	store := new(MockStore)
	gw := new(MockTranslator)
	store.On("GetTranslations", []string{"m1", "m2", "m4"}, "es").Return(map[string]string{"m1": "Hola"}, nil)
	gw.On("Translate", "Good night", "en", "es").Return("Buenas noches", nil)
	gw.On("Translate", "Thanks", "en", "es").Return("Thanks", translation.ErrTranslationUnavailable)
	store.On("SaveTranslation", isTranslation("m2", "es", "Buenas noches")).Return(true, nil)
	svc := translation.NewService(translation.NewCache(store), gw, 2)

	got := svc.BatchTranslate(context.Background(), msgs, "es")

	assert.Equal(t, map[string]translation.Result{
		"m1": {Text: "Hola", FromCache: true},
		"m2": {Text: "Buenas noches"},
		"m3": {Text: "Hola", NotNeeded: true},
		"m4": {Text: "Thanks", Fallback: true},
	}, got)
	store.AssertNumberOfCalls(t, "SaveTranslation", 1)
}

func TestBatchTranslate_BulkLookupFailureTranslatesAll(t *testing.T) {
	msgs := []models.Message{{ID: "m1", Content: "Hello", SourceLanguage: "en"}}
	store := new(MockStore)
	gw := new(MockTranslator)
	store.On("GetTranslations", []string{"m1"}, "fr").Return(nil, errors.New("db down"))
	gw.On("Translate", "Hello", "en", "fr").Return("Bonjour", nil)
	store.On("SaveTranslation", mock.Anything).Return(true, nil)
	svc := translation.NewService(translation.NewCache(store), gw, 2)

	got := svc.BatchTranslate(context.Background(), msgs, "fr")

	assert.Equal(t, "Bonjour", got["m1"].Text)
}

func TestTranslateMessage_SkipsCacheRead(t *testing.T) {
	store := new(MockStore)
	gw := new(MockTranslator)
	gw.On("Translate", "Hello", "en", "es").Return("Hola", nil).Once()
	store.On("SaveTranslation", isTranslation("m1", "es", "Hola")).Return(true, nil).Once()
	svc := translation.NewService(translation.NewCache(store), gw, 4)

	res := svc.TranslateMessage(context.Background(), hello, "ES")

	assert.Equal(t, "Hola", res.Text)
	store.AssertNotCalled(t, "GetTranslation", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}
