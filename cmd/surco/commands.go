package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/impag-mx/surco/internal/config"
	"github.com/impag-mx/surco/internal/generate"
	"github.com/impag-mx/surco/internal/ingest"
	"github.com/impag-mx/surco/internal/llm"
	"github.com/impag-mx/surco/internal/retrieval"
	"github.com/impag-mx/surco/internal/storage"
)

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate <query>",
	Short: "Generate a grounded post for a query and date",
	Long: `Generate a grounded post for a query and date.

Examples:
  surco generate "protección contra heladas" --date 2026-10-05
  surco generate "malla sombra para invernadero" --channel facebook`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		date, _ := cmd.Flags().GetString("date")
		channel, _ := cmd.Flags().GetString("channel")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/generate", map[string]any{
			"query":    query,
			"date_for": date,
			"channel":  channel,
		})
		if err != nil {
			return err
		}

		var result struct {
			Strategy generate.StrategyArtifact `json:"strategy"`
			Content  generate.ContentArtifact  `json:"content"`
			Products []struct {
				Name     string  `json:"name"`
				Price    float64 `json:"price"`
				Currency string  `json:"currency"`
				Score    int     `json:"score"`
			} `json:"products"`
			PostID  string `json:"post_id"`
			SoftDup bool   `json:"soft_duplicate"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Printf("\n%s %s\n", colorize(colorBold, "Tema:"), result.Strategy.Topic)
		fmt.Printf("\n%s\n", result.Content.Body)
		if len(result.Content.Hashtags) > 0 {
			fmt.Printf("\n%s\n", strings.Join(result.Content.Hashtags, " "))
		}
		if result.Content.CallToAction != "" {
			fmt.Printf("\n%s\n", result.Content.CallToAction)
		}
		for _, p := range result.Products {
			printStatus("Producto", "%s — $%.2f %s (score %d)", p.Name, p.Price, p.Currency, p.Score)
		}
		if result.SoftDup {
			printWarning("el problema del tema apareció hace poco con otra solución")
		}
		printSuccess("Post %s registrado", result.PostID)
		return nil
	},
}

func init() {
	generateCmd.Flags().String("date", "", "publication date YYYY-MM-DD (default today)")
	generateCmd.Flags().String("channel", "facebook", "publishing channel")
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents into the grounding index",
	Long: `Ingest documents into the grounding index.

Examples:
  surco ingest --file ./cotizacion-412.pdf --type quotation
  surco ingest --dir ./cotizaciones --type quotation
  surco ingest --text "El cliente pidió malla al 50%" --type note`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		dir, _ := cmd.Flags().GetString("dir")
		text, _ := cmd.Flags().GetString("text")
		sourceType, _ := cmd.Flags().GetString("type")

		if file == "" && dir == "" && text == "" {
			return fmt.Errorf("one of --file, --dir, or --text is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		embedder := llm.NewOpenAIEmbedder(cfg.LLM.OpenAIAPIKey, cfg.LLM.EmbedModel)
		vectorStore := retrieval.NewSQLiteStore(store.DB())
		ing := ingest.NewIngestor(embedder, vectorStore, 0, ingest.DefaultOverlapSentence)

		ctx := cmd.Context()
		var n int
		switch {
		case text != "":
			n, err = ing.IngestText(ctx, "cli", sourceType, text)
		case file != "":
			printStep("Ingesting %s...", file)
			n, err = ing.IngestFile(ctx, file, sourceType)
		case dir != "":
			printStep("Ingesting directory %s...", dir)
			n, err = ing.IngestDir(ctx, dir, sourceType)
		}
		if err != nil {
			return err
		}

		printSuccess("Indexed %d chunks", n)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("file", "", "file path to ingest (PDF or plain text)")
	ingestCmd.Flags().String("dir", "", "directory to ingest recursively")
	ingestCmd.Flags().String("text", "", "raw text to ingest")
	ingestCmd.Flags().String("type", "note", "source type label (quotation, note, catalog)")
}

// --- catalog ---

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the product catalog snapshot",
}

var catalogRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-import the catalog from the shop feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/catalog/refresh", nil)
		if err != nil {
			return err
		}

		var result map[string]int
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Imported %d products", result["products"])
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogRefreshCmd)
}

// --- checkdup ---

var checkdupCmd = &cobra.Command{
	Use:   "checkdup <topic>",
	Short: "Check a topic against recent posts",
	Long: `Check a topic against recent posts.

Example:
  surco checkdup "plagas en tomate → control biológico" --date 2026-09-01`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := strings.Join(args, " ")
		date, _ := cmd.Flags().GetString("date")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/dedupe/check", map[string]string{
			"topic":    topic,
			"date_for": date,
		})
		if err != nil {
			return err
		}

		var result struct {
			Hard      bool     `json:"hard"`
			Soft      bool     `json:"soft"`
			Conflicts []string `json:"conflicts"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		switch {
		case result.Hard:
			printError("hard duplicate: the topic was already used")
		case result.Soft:
			printWarning("soft duplicate: same problem, different solution")
		default:
			printSuccess("topic is available")
		}
		for _, c := range result.Conflicts {
			printStatus("Conflict", "%s", c)
		}
		if result.Hard {
			return fmt.Errorf("topic conflicts with recent posts")
		}
		return nil
	},
}

func init() {
	checkdupCmd.Flags().String("date", "", "publication date YYYY-MM-DD (default today)")
}

// --- variety ---

var varietyCmd = &cobra.Command{
	Use:   "variety",
	Short: "Show topic variety over recent posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		window, _ := cmd.Flags().GetInt("window")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/api/variety?window_days=%d", window)
		if date != "" {
			path += "&date_for=" + date
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result struct {
			DateFor    string  `json:"date_for"`
			WindowDays int     `json:"window_days"`
			Variety    float64 `json:"variety"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printStatus("Window", "%d days up to %s", result.WindowDays, result.DateFor)
		printStatus("Variety", "%.2f", result.Variety)
		if result.Variety < 0.5 {
			printWarning("topics are repeating; consider widening the content plan")
		}
		return nil
	},
}

func init() {
	varietyCmd.Flags().String("date", "", "reference date YYYY-MM-DD (default today)")
	varietyCmd.Flags().Int("window", 30, "trailing window in days")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
