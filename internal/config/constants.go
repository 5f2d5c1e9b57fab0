package config

import "time"

const (
	// Translation
	DefaultTranslationTimeout     = 10 * time.Second
	DefaultTranslationCacheTTL    = 15 * time.Minute
	DefaultTranslationRatePerSec  = 20
	DefaultTranslationBurst       = 40
	DefaultTranslationConcurrency = 8
	DefaultLingoAPIURL            = "https://engine.lingo.dev"

	// Rooms
	InviteCodeLength     = 8
	InviteCodeAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	MaxRoomNameLength    = 100
	MaxRoomDescLength    = 500
	InviteCodeMaxRetries = 5

	// Messages
	DefaultHistoryLimit = 100
	MaxMessageLength    = 4000

	// Sessions
	DefaultTypingWindow = 3 * time.Second
	TypingSweepInterval = 500 * time.Millisecond

	// Hub
	SubscriptionBuffer = 256
	RelistenDelay      = 2 * time.Second

	// HTTP
	DefaultHTTPAddr        = ":8080"
	DefaultShutdownTimeout = 15 * time.Second
	TokenTTL               = 72 * time.Hour
	TokenIssuer            = "babelchat-service"
)
