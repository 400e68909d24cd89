package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clinic_booking_bot/internal/availability"
	"clinic_booking_bot/internal/calendar"
	"clinic_booking_bot/internal/config"
	"clinic_booking_bot/internal/console"
	"clinic_booking_bot/internal/dialogue"
	"clinic_booking_bot/internal/extractor"
	"clinic_booking_bot/internal/extractor/gemini"
	"clinic_booking_bot/internal/ledger"
	"clinic_booking_bot/internal/storage"
	"clinic_booking_bot/internal/storage/csvfile"
	"clinic_booking_bot/internal/storage/sqlite"
	"clinic_booking_bot/pkg/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clinic-booking",
		Short:         "Appointment booking assistant for a dental clinic",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("init-ledger", false, "Create an empty ledger if it does not exist")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(slotsCmd())
	rootCmd.AddCommand(bookingsCmd())

	return rootCmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the booking assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			chat := console.New(a.engine, a.extractor, a.cfg.Clinic.Name, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
			return chat.Run(ctx)
		},
	}
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print free appointment hours for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")

			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			slots, err := a.resolver.AvailableSlots(date)
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No available slots for %s.\n", date)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), dialogue.SlotTable(date, slots))
			return nil
		},
	}
	cmd.Flags().String("date", "", "Date in YYYY-MM-DD format")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func bookingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bookings",
		Short: "Print all bookings in the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			bookings := a.ledger.Snapshot()
			if len(bookings) == 0 {
				fmt.Fprintln(out, "No bookings.")
				return nil
			}
			for _, b := range bookings {
				hour, err := b.Hour()
				if err != nil {
					fmt.Fprintf(out, "%s: %s %s (invalid hour)\n\n", b.Name, b.Date, b.Time)
					continue
				}
				fmt.Fprintln(out, dialogue.Summary(b.Name, b.Date, hour, b.Remarks))
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

// app общие зависимости всех команд
type app struct {
	cfg       *config.Config
	logger    *logger.Logger
	store     storage.LedgerStore
	ledger    *ledger.Ledger
	resolver  *availability.Resolver
	extractor *extractor.Guard
	engine    *dialogue.Engine
	closers   []func() error
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log}
	a.closers = append(a.closers, func() error {
		_ = log.Sync()
		return nil
	})

	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}

	initLedger, _ := cmd.Flags().GetBool("init-ledger")
	if a.store, err = openStore(ctx, cfg, initLedger); err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	if a.ledger, err = ledger.Open(ctx, a.store, log); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open ledger %s: %w", cfg.Ledger.Path, err)
	}

	rules := calendar.DefaultRules()
	a.resolver = availability.NewResolver(a.ledger, rules, log)

	inner, err := buildExtractor(ctx, a, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.extractor = extractor.NewGuard(inner, cfg.Extractor.Timeout, log)

	a.engine = dialogue.NewEngine(a.ledger, a.resolver, a.extractor, log, dialogue.WithLocation(loc))

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, initLedger bool) (storage.LedgerStore, error) {
	switch cfg.Ledger.Driver {
	case config.LedgerSQLite:
		// таблица создается при открытии, отдельная инициализация не нужна
		store, err := sqlite.New(cfg.Ledger.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store := csvfile.New(cfg.Ledger.Path)
		if initLedger {
			if err := store.Init(ctx); err != nil {
				return nil, fmt.Errorf("failed to initialise ledger %s: %w", cfg.Ledger.Path, err)
			}
		}
		return store, nil
	}
}

// buildExtractor выбирает извлекатель: Gemini с запасными правилами или только правила
func buildExtractor(ctx context.Context, a *app, log *logger.Logger) (extractor.Extractor, error) {
	rules := extractor.NewRules()
	if a.cfg.Extractor.Provider != config.ExtractorGemini {
		return rules, nil
	}

	client, err := gemini.New(ctx, a.cfg.Extractor.APIKey, a.cfg.Extractor.Model)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	log.Info("Using Gemini extractor", logger.String("model", a.cfg.Extractor.Model))
	return extractor.NewChain(extractor.NewLLM(client, a.cfg.Clinic.Name), rules, log), nil
}

// Close освобождает ресурсы в обратном порядке
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to release resource", logger.Error(err))
		}
	}
	a.closers = nil
}
