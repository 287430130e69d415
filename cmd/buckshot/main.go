package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tatianab/buckshot/internal/agent"
	"github.com/tatianab/buckshot/internal/config"
	"github.com/tatianab/buckshot/internal/driver"
	"github.com/tatianab/buckshot/internal/engine"
	"github.com/tatianab/buckshot/internal/logging"
	"github.com/tatianab/buckshot/internal/models"
	"github.com/tatianab/buckshot/internal/terminal"
	"github.com/tatianab/buckshot/internal/tracker"
	"github.com/tatianab/buckshot/internal/tui"
)

// maxHistory is how many exchanges the model sees verbatim before older
// ones are summarized.
const maxHistory = 20

var (
	configPath string
	verbose    bool
	maxTurns   int
	saveName   string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "buckshot",
	Short: "Let Gemini play Buckshot Roulette in a terminal",
	Long: `buckshot launches the terminal version of Buckshot Roulette on a
pseudo-terminal, reads the table from the screen and lets a Gemini model
choose every move.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Development, cfg.Logging.File)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the game and play until it ends",
	Args:  cobra.NoArgs,
	RunE:  runPlay,
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List saved game records",
	Args:  cobra.NoArgs,
	RunE:  listRecords,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	playCmd.Flags().IntVar(&maxTurns, "max-turns", 0, "stop after this many decisions (0 = until the game ends)")
	playCmd.Flags().StringVar(&saveName, "save", "", "record name (default: start time)")

	rootCmd.AddCommand(playCmd, recordsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if saveName == "" {
		saveName = time.Now().Format("20060102-150405")
	}

	gameLog, err := os.OpenFile(cfg.Game.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open game log: %w", err)
	}
	defer gameLog.Close()

	trk := tracker.New(gameLog, logger)
	defer trk.Close()

	sess := terminal.New(cfg.Game.Command, trk.Feed,
		terminal.WithArgs(cfg.Game.Args...),
		terminal.WithDir(cfg.Game.Dir),
		terminal.WithSize(cfg.Game.Cols, cfg.Game.Rows),
		terminal.WithLogger(logger))
	drv := driver.New(sess, trk,
		driver.WithTimings(cfg.Timings),
		driver.WithMenuInputs(cfg.Game.MenuInputs...),
		driver.WithLogger(logger))
	defer drv.Close()

	eng, err := engine.NewEngine(ctx, cfg.GeminiAPIKey, engine.Options{
		Model:       cfg.Model.Name,
		Temperature: cfg.Model.Temperature,
		MaxHistory:  maxHistory,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()

	if err := drv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	out := cmd.OutOrStdout()
	ag := agent.New(drv, eng,
		agent.WithMaxTurns(maxTurns),
		agent.WithModelName(cfg.Model.Name),
		agent.WithLogger(logger),
		agent.WithTurnHook(func(turn int, state models.GameState) {
			fmt.Fprintln(out, tui.RenderState(turn, state))
		}))

	record, playErr := ag.Play(ctx)
	for _, a := range record.Actions {
		line := tui.RenderAction(fmt.Sprintf("%d %s", a.Turn, a.Command))
		if a.Error != "" {
			line += " (" + a.Error + ")"
		}
		fmt.Fprintln(out, line)
	}
	if err := record.Save(cfg.SaveDir, saveName); err != nil {
		logger.Error("Failed to save record", zap.Error(err))
	} else {
		fmt.Fprintf(out, "Saved %s (%s, %d actions)\n", saveName, record.Outcome, len(record.Actions))
	}
	return playErr
}

func listRecords(cmd *cobra.Command, args []string) error {
	names, err := models.ListRecords(cfg.SaveDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "No saved records.")
		return nil
	}
	for _, name := range names {
		record, err := models.LoadRecord(cfg.SaveDir, name)
		if err != nil {
			logger.Warn("Unreadable record", zap.String("name", name), zap.Error(err))
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%d actions\tyou %d / dealer %d\n",
			name, record.Outcome, len(record.Actions), record.Final.PlayerHealth, record.Final.DealerHealth)
	}
	return nil
}
