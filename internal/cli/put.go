package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/context-digest/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [message]",
		Short: "Store an event",
		Long:  "Store an event. The user message can be a positional arg or piped via stdin.",
		Run:   runPut,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.Flags().String("id", "", "Event id (default: generated)")
	cmd.Flags().String("description", "", "Short description")
	cmd.Flags().String("response", "", "Assistant response")
	cmd.Flags().String("insight", "", "Insight drawn from the event")
	cmd.Flags().StringP("emotion", "e", "", "Emotional state, e.g. fear or joy")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().IntP("priority", "p", 0, "Priority 1-5")
	cmd.Flags().String("category", "", "Category")
	cmd.Flags().String("at", "", "Creation time, RFC 3339 or YYYY-MM-DD (default: now)")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func runPut(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	id, _ := cmd.Flags().GetString("id")
	description, _ := cmd.Flags().GetString("description")
	response, _ := cmd.Flags().GetString("response")
	insight, _ := cmd.Flags().GetString("insight")
	emotion, _ := cmd.Flags().GetString("emotion")
	tagsStr, _ := cmd.Flags().GetString("tags")
	priority, _ := cmd.Flags().GetInt("priority")
	category, _ := cmd.Flags().GetString("category")
	at, _ := cmd.Flags().GetString("at")

	var message string
	if len(args) > 0 {
		message = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			message = string(b)
		}
	}
	if strings.TrimSpace(message) == "" && strings.TrimSpace(description) == "" {
		exitErr("put", fmt.Errorf("a message or --description is required"))
	}
	if priority < 0 || priority > 5 {
		exitErr("put", fmt.Errorf("priority must be 1-5, got %d", priority))
	}
	createdAt, err := parseTime(at)
	if err != nil {
		exitErr("parse --at", err)
	}

	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	ev, err := s.Put(cmd.Context(), store.PutParams{
		ID:             id,
		UserID:         user,
		CreatedAt:      createdAt,
		Message:        strings.TrimSpace(message),
		Response:       response,
		Description:    description,
		Insight:        insight,
		EmotionalState: emotion,
		Tags:           splitTags(tagsStr),
		Priority:       priority,
		Category:       category,
	})
	if err != nil {
		exitErr("put", err)
	}

	b, _ := json.Marshal(ev)
	fmt.Println(string(b))
}
