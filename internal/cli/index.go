package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/context-digest/internal/embedding"
	"github.com/rcliao/context-digest/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed event chunks that have no vector yet",
		Long:  "Embed pending event chunks with the configured provider (CONTEXT_EMBED_PROVIDER=ollama|openai).",
		Run:   runIndex,
	}

	cmd.Flags().StringP("user", "u", "", "Only index this user's events")

	RootCmd.AddCommand(cmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	cfg := loadConfig()
	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		exitErr("embedding", err)
	}
	if emb == nil {
		exitErr("index", errors.New("no embedding provider configured"))
	}

	s := openStore(cfg)
	defer s.Close()

	idx, err := search.NewEmbeddingIndex(s, emb, 0)
	if err != nil {
		exitErr("index", err)
	}
	n, err := idx.Index(cmd.Context(), user)
	if err != nil {
		exitErr("index", err)
	}
	fmt.Printf(`{"ok":true,"embedded":%d,"dims":%d}`+"\n", n, emb.Dims())
}
