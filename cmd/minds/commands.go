package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/5hiel/artistic-minds-sub002/internal/config"
	"github.com/5hiel/artistic-minds-sub002/internal/dna"
	"github.com/5hiel/artistic-minds-sub002/internal/engine"
	"github.com/5hiel/artistic-minds-sub002/internal/profile"
	"github.com/5hiel/artistic-minds-sub002/internal/puzzle"
	"github.com/5hiel/artistic-minds-sub002/internal/storage"
)

// --- session ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start a new play session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sessions", nil)
		if err != nil {
			return err
		}

		var sess struct {
			ID string `json:"id"`
		}
		if err := decodeJSON(resp, &sess); err != nil {
			return err
		}

		printSuccess("Started session %s", sess.ID)
		return nil
	},
}

// --- next ---

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Get the next adapted puzzle",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/next-puzzle", nil)
		if err != nil {
			return err
		}

		var rec struct {
			Puzzle struct {
				ID         string   `json:"id"`
				Type       string   `json:"type"`
				Difficulty float64  `json:"difficulty"`
				Question   string   `json:"question"`
				Options    []string `json:"options"`
			} `json:"puzzle"`
			Reason     string  `json:"reason"`
			Confidence float64 `json:"confidence"`
			Fallback   bool    `json:"fallback"`
		}
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}

		fmt.Printf("%s  %s (difficulty %.2f)\n",
			colorize(colorCyan, rec.Puzzle.ID), rec.Puzzle.Type, rec.Puzzle.Difficulty)
		fmt.Printf("\n%s\n\n", rec.Puzzle.Question)
		for i, opt := range rec.Puzzle.Options {
			fmt.Printf("  %d) %s\n", i+1, opt)
		}
		if rec.Fallback {
			printWarning("fallback selection: %s", rec.Reason)
		}
		return nil
	},
}

// --- complete ---

var completeCmd = &cobra.Command{
	Use:   "complete <puzzle-id>",
	Short: "Record a puzzle outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		success, _ := cmd.Flags().GetBool("success")
		timeMs, _ := cmd.Flags().GetInt64("time-ms")
		engagement, _ := cmd.Flags().GetFloat64("engagement")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/completions", map[string]any{
			"puzzle_id":     args[0],
			"success":       success,
			"solve_time_ms": timeMs,
			"engagement":    engagement,
		})
		if err != nil {
			return err
		}

		var result struct {
			SkillLevel    float64 `json:"skill_level"`
			Accuracy      float64 `json:"accuracy"`
			PuzzlesSolved int     `json:"puzzles_solved"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Recorded. Skill %.2f, accuracy %.2f over %d puzzles.",
			result.SkillLevel, result.Accuracy, result.PuzzlesSolved)
		return nil
	},
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect or reset the user profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		var p any
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

var profileResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the profile to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Profile reset")
		return nil
	},
}

func init() {
	completeCmd.Flags().Bool("success", false, "the puzzle was solved correctly")
	completeCmd.Flags().Int64("time-ms", 0, "solve time in milliseconds")
	completeCmd.Flags().Float64("engagement", 0.7, "engagement estimate in [0, 1]")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileResetCmd)
}

// --- prefer ---

var preferCmd = &cobra.Command{
	Use:   "prefer <type>",
	Short: "Mark a puzzle type as liked (or disliked with --remove)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remove, _ := cmd.Flags().GetBool("remove")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.patch(cmd.Context(), "/profile", map[string]any{
			"preferred_type": args[0],
			"liked":          !remove,
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if remove {
			printSuccess("Removed %s from preferred types", args[0])
		} else {
			printSuccess("Marked %s as preferred", args[0])
		}
		return nil
	},
}

func init() {
	preferCmd.Flags().Bool("remove", false, "remove the type from the preferred set")
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show profile and recent completion statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/stats?limit=%d", limit))
		if err != nil {
			return err
		}

		var stats struct {
			Profile struct {
				SkillLevel    float64 `json:"skill_level"`
				MaxDifficulty float64 `json:"max_difficulty"`
				Accuracy      float64 `json:"accuracy"`
				Engagement    float64 `json:"engagement"`
				PuzzlesSolved int     `json:"puzzles_solved"`
				Sessions      int     `json:"sessions"`
			} `json:"profile"`
			Characteristics struct {
				MaxDifficulty float64 `json:"max_difficulty"`
				Style         string  `json:"learning_style"`
				Stage         string  `json:"development_stage"`
			} `json:"characteristics"`
			Recent []struct {
				PuzzleType string  `json:"puzzle_type"`
				Success    bool    `json:"success"`
				Difficulty float64 `json:"difficulty"`
			} `json:"recent"`
		}
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}

		printStatus("Skill level", "%.2f", stats.Profile.SkillLevel)
		printStatus("Accuracy", "%.2f", stats.Profile.Accuracy)
		printStatus("Engagement", "%.2f", stats.Profile.Engagement)
		printStatus("Puzzles solved", "%d", stats.Profile.PuzzlesSolved)
		printStatus("Sessions", "%d", stats.Profile.Sessions)
		printStatus("Stage", "%s", stats.Characteristics.Stage)
		printStatus("Style", "%s", stats.Characteristics.Style)
		printStatus("Difficulty cap", "%.2f", stats.Characteristics.MaxDifficulty)

		if len(stats.Recent) > 0 {
			fmt.Fprintln(os.Stderr)
			for _, c := range stats.Recent {
				mark := colorize(colorRed, "✗")
				if c.Success {
					mark = colorize(colorGreen, "✓")
				}
				fmt.Fprintf(os.Stderr, "  %s %-20s %.2f\n", mark, c.PuzzleType, c.Difficulty)
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("limit", 10, "number of recent completions to show")
}

// --- simulate ---

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an offline selection simulation against a synthetic solver",
	Long: `Run an offline selection simulation against a synthetic solver.

The solver succeeds with probability depending on the gap between its fixed
ability and the served difficulty. Useful for eyeballing how fast the engine
converges. Nothing is persisted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rounds, _ := cmd.Flags().GetInt("rounds")
		ability, _ := cmd.Flags().GetFloat64("ability")
		seed, _ := cmd.Flags().GetInt64("seed")

		if rounds < 1 {
			return fmt.Errorf("--rounds must be at least 1")
		}
		if ability < 0 || ability > 1 {
			return fmt.Errorf("--ability must be in [0, 1]")
		}
		return runSimulation(cmd, rounds, ability, seed, os.Stdout)
	},
}

func runSimulation(cmd *cobra.Command, rounds int, ability float64, seed int64, out io.Writer) error {
	store, err := storage.Open(":memory:")
	if err != nil {
		return fmt.Errorf("opening simulation store: %w", err)
	}
	defer store.Close()

	profiles := profile.NewManager(store)
	defer profiles.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(profiles, dna.NewAnalyzer(), puzzle.NewSeededGenerator(seed), nil, engine.DefaultTuning(), logger)

	rng := rand.New(rand.NewSource(seed))
	profiles.StartSession()

	wins := 0
	for i := 0; i < rounds; i++ {
		rec, err := eng.NextPuzzle(cmd.Context())
		if err != nil {
			return fmt.Errorf("round %d: %w", i+1, err)
		}

		// Success probability falls off linearly as difficulty exceeds
		// ability; easy puzzles are nearly always solved.
		pWin := 0.95 - 1.5*(rec.DNA.Difficulty-ability)
		if pWin > 0.95 {
			pWin = 0.95
		}
		if pWin < 0.05 {
			pWin = 0.05
		}
		success := rng.Float64() < pWin
		if success {
			wins++
		}

		engagement := 0.5 + 0.4*(1-abs(rec.DNA.Difficulty-ability))
		eng.RecordCompletion(cmd.Context(), rec.Puzzle.ID, success,
			time.Duration(2+rng.Intn(20))*time.Second, engagement)

		p := profiles.GetProfile()
		fmt.Fprintf(out, "round %3d  %-20s diff %.2f  %s  skill %.2f  acc %.2f\n",
			i+1, rec.Puzzle.Type, rec.DNA.Difficulty, resultMark(success), p.SkillLevel, p.OverallAccuracy)
	}

	p := profiles.GetProfile()
	fmt.Fprintf(out, "\n%d/%d solved; final skill %.2f, ceiling %.2f, stage %s\n",
		wins, rounds, p.SkillLevel, p.MaxDifficulty, eng.Characteristics().Stage)
	return nil
}

func resultMark(success bool) string {
	if success {
		return "win "
	}
	return "loss"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func init() {
	simulateCmd.Flags().Int("rounds", 30, "number of puzzles to simulate")
	simulateCmd.Flags().Float64("ability", 0.5, "synthetic solver ability in [0, 1]")
	simulateCmd.Flags().Int64("seed", 42, "random seed")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or set configuration values",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("%-24s %-32s (%s)\n", k.Key, k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return fmt.Errorf("%w (valid keys: %v)", err, config.ValidKeys())
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
