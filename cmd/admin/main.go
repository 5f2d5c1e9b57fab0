package main

import (
	"babelchat/backend/internal/config"
	"babelchat/backend/internal/lingo"
	"babelchat/backend/internal/logger"
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/rooms"
	"babelchat/backend/internal/storage"
	"babelchat/backend/internal/translation"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var cfg *config.Config

// No redis needed for the admin CLI: membership events are not published
// and backfilled translations skip the proxy cache.
func openStorage() (*storage.Service, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger:         logger.Gorm(cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return storage.NewStorageService(db, nil), nil
}

var rootCmd = &cobra.Command{
	Use:          "admin",
	Short:        "BabelChat administration tool",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger.InitWithWriter(os.Stderr, cfg.LogLevel)
		return nil
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Room management commands",
}

var listPublicCmd = &cobra.Command{
	Use:   "public",
	Short: "List public rooms with their member counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStorage()
		if err != nil {
			return err
		}
		list, err := store.ListPublicRoomsWithCounts(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list rooms: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No public rooms.")
			return nil
		}
		for _, r := range list {
			fmt.Printf("%s | %-30s | members: %d | invite: %s\n", r.ID, r.Name, r.MemberCount, r.InviteCode)
		}
		return nil
	},
}

var regenerateInviteCmd = &cobra.Command{
	Use:   "regenerate-invite [room_id] [member_id]",
	Short: "Issue a new invite code on behalf of a room member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStorage()
		if err != nil {
			return err
		}
		svc, err := rooms.NewService(store, nil)
		if err != nil {
			return err
		}
		code, err := svc.RegenerateInviteCode(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to regenerate invite code: %w", err)
		}
		fmt.Printf("Room %s has a new invite code: %s\n", args[0], code)
		return nil
	},
}

var translationsCmd = &cobra.Command{
	Use:   "translations",
	Short: "Translation cache commands",
}

var backfillCmd = &cobra.Command{
	Use:   "backfill [room_id] [lang]",
	Short: "Translate and cache a room's recent history for one language",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, lang := args[0], models.NormalizeLanguage(args[1])
		if !models.IsSupportedLanguage(lang) {
			return fmt.Errorf("unsupported language %q", args[1])
		}
		store, err := openStorage()
		if err != nil {
			return err
		}
		history, err := store.GetChatHistory(cmd.Context(), roomID, cfg.HistoryLimit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		engine := lingo.NewClient(lingo.Config{
			BaseURL:    cfg.LingoAPIURL,
			APIKey:     cfg.LingoAPIKey,
			Timeout:    cfg.TranslationTimeout,
			RatePerSec: float64(cfg.TranslationRatePerSec),
			Burst:      cfg.TranslationBurst,
		})
		gateway := translation.NewGateway(engine, nil, cfg.TranslationTimeout)
		svc := translation.NewService(translation.NewCache(store), gateway, cfg.TranslationConcurrency)

		var cached, translated, skipped, failed int
		for _, res := range svc.BatchTranslate(cmd.Context(), history, lang) {
			switch {
			case res.NotNeeded:
				skipped++
			case res.Fallback:
				failed++
			case res.FromCache:
				cached++
			default:
				translated++
			}
		}
		fmt.Printf("Room %s (%s): %d translated, %d already cached, %d not needed, %d failed\n",
			roomID, lang, translated, cached, skipped, failed)
		return nil
	},
}

func init() {
	roomsCmd.AddCommand(listPublicCmd, regenerateInviteCmd)
	translationsCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(roomsCmd, translationsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
