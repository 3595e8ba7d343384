package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath(cfg))
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		fmt.Printf("database: %s (%s)\n", stats.DBPath, humanize.Bytes(uint64(stats.DBSizeBytes)))
		fmt.Printf("events:   %s\n", humanize.Comma(int64(stats.TotalEvents)))
		fmt.Printf("chunks:   %s (%s embedded)\n", humanize.Comma(int64(stats.TotalChunks)), humanize.Comma(int64(stats.EmbeddedChunks)))
		fmt.Printf("charts:   %s\n", humanize.Comma(int64(stats.Charts)))
		for _, u := range stats.Users {
			fmt.Printf("  %-20s %8s events  %s .. %s\n", u.UserID, humanize.Comma(int64(u.Events)), u.First, u.Last)
		}
		return
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
