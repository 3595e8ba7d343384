package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/context-digest/internal/embedding"
	"github.com/rcliao/context-digest/internal/integrator"
	"github.com/rcliao/context-digest/internal/logging"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/natal"
	"github.com/rcliao/context-digest/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "digest [query]",
		Short: "Build the context digest for a query",
		Long:  "Run the freshness, emotions, patterns and karma modules for a user and print the budgeted digest.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runDigest,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.Flags().IntP("budget", "b", 0, "Max tokens in the digest (default: config)")
	cmd.Flags().Int("period-days", 0, "Freshness lookback in days (default: config)")
	cmd.Flags().IntP("limit", "l", 0, "Freshness result limit (default: config)")
	cmd.Flags().String("profile", "", "YAML or JSON file with the user profile")
	cmd.Flags().String("now", "", "Reference time, RFC 3339 or YYYY-MM-DD (default: now)")
	cmd.Flags().Bool("no-emotions", false, "Skip the emotions module")
	cmd.Flags().Bool("no-patterns", false, "Skip the patterns module")
	cmd.Flags().Bool("no-karma", false, "Skip the karma module")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func readProfile(path string) (*model.Profile, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p model.Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

func runDigest(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	budget, _ := cmd.Flags().GetInt("budget")
	periodDays, _ := cmd.Flags().GetInt("period-days")
	limit, _ := cmd.Flags().GetInt("limit")
	profilePath, _ := cmd.Flags().GetString("profile")
	nowStr, _ := cmd.Flags().GetString("now")
	noEmotions, _ := cmd.Flags().GetBool("no-emotions")
	noPatterns, _ := cmd.Flags().GetBool("no-patterns")
	noKarma, _ := cmd.Flags().GetBool("no-karma")

	profile, err := readProfile(profilePath)
	if err != nil {
		exitErr("profile", err)
	}
	now, err := parseTime(nowStr)
	if err != nil {
		exitErr("parse --now", err)
	}

	cfg := loadConfig()
	logger := newLogger(cfg)
	s := openStore(cfg)
	defer s.Close()

	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		exitErr("embedding", err)
	}
	searcher, err := search.New(cfg.Search, s, emb, logging.For(logger, "search"))
	if err != nil {
		exitErr("search", err)
	}
	charts, err := natal.NewCache(s, cfg.Karma, logging.For(logger, "natal"))
	if err != nil {
		exitErr("natal cache", err)
	}
	defer charts.Close()

	req := model.NewRequest(user, strings.Join(args, " "))
	req.Now = now
	req.PeriodDays = periodDays
	req.Limit = limit
	req.MaxTokens = budget
	req.Profile = profile
	req.IncludeEmotions = !noEmotions
	req.IncludePatterns = !noPatterns
	req.IncludeKarma = !noKarma

	res := integrator.New(cfg, s, searcher, charts, logging.For(logger, "integrator")).BuildDigest(cmd.Context(), req)

	if formatFlag == "text" {
		fmt.Println(res.Digest)
		return
	}
	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}
