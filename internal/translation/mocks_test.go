package translation_test

import (
	"babelchat/backend/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of translation.CacheStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetTranslation(ctx context.Context, messageID, lang string) (string, bool, error) {
	args := m.Called(messageID, lang)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) GetTranslations(ctx context.Context, messageIDs []string, lang string) (map[string]string, error) {
	args := m.Called(messageIDs, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockStore) SaveTranslation(ctx context.Context, tr *models.MessageTranslation) (bool, error) {
	args := m.Called(tr)
	return args.Bool(0), args.Error(1)
}

// MockBackend is a testify mock of translation.Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Localize(ctx context.Context, text, source, target string) (string, error) {
	args := m.Called(ctx, text, source, target)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Recognize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

// MockTranslator is a testify mock of translation.TextTranslator.
type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	args := m.Called(text, source, target)
	return args.String(0), args.Error(1)
}
