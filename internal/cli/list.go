package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/context-digest/internal/scoring"
	"github.com/rcliao/context-digest/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events newest first",
		Run:   runList,
	}

	cmd.Flags().StringP("user", "u", "", "Filter by user")
	cmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	tagsStr, _ := cmd.Flags().GetString("tags")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	events, err := s.List(cmd.Context(), store.ListParams{
		UserID: user,
		Tags:   splitTags(tagsStr),
		Limit:  limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if formatFlag == "text" {
		for _, e := range events {
			fmt.Printf("%s  %s  %s\n", e.ID, e.CreatedAt.Format("2006-01-02"), scoring.FormatEventText(e))
		}
		return
	}

	b, _ := json.MarshalIndent(events, "", "  ")
	fmt.Println(string(b))
}
