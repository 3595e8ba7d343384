package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/natal"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Store or show a user's natal chart",
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Store a recalculated chart read from stdin",
		Long:  `Store a chart read from stdin as {"planets":[{"name":"venus","house":12,"aspects":[...]}]}. Each call bumps the chart version.`,
		Run:   runChartSet,
	}
	set.Flags().StringP("user", "u", "", "User id (required)")
	set.MarkFlagRequired("user")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the current chart",
		Run:   runChartShow,
	}
	show.Flags().StringP("user", "u", "", "User id (required)")
	show.MarkFlagRequired("user")

	cmd.AddCommand(set, show)
	RootCmd.AddCommand(cmd)
}

func runChartSet(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}
	var c model.NatalChart
	if err := json.Unmarshal(data, &c); err != nil {
		exitErr("parse json", err)
	}
	c.UserID = user
	if err := natal.Validate(&c); err != nil {
		exitErr("chart", err)
	}

	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	saved, err := s.PutChart(cmd.Context(), c)
	if err != nil {
		exitErr("put chart", err)
	}
	fmt.Printf(`{"ok":true,"user_id":%q,"version":%d}`+"\n", saved.UserID, saved.Version)
}

func runChartShow(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	c, err := s.Chart(cmd.Context(), user)
	if err != nil {
		exitErr("chart", err)
	}
	b, _ := json.MarshalIndent(c, "", "  ")
	fmt.Println(string(b))
}
