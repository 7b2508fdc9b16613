package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/face-studio/internal/config"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [image]",
	Short: "Analyze the face in an image",
	Long: `Analyze the face in an image and print the result as JSON: face region,
landmarks, skin tone, lighting and a confidence score.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("provider", providerGemini, "AI provider (gemini, openai)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	provider, err := createAIProvider(context.Background(), cfg, mustGetString(cmd, "provider"))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	analysis, err := provider.AnalyzeFace(context.Background(), data)
	if err != nil {
		return fmt.Errorf("face analysis failed: %w", err)
	}

	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	fmt.Println(string(out))

	usage := provider.GetUsage()
	fmt.Printf("\nTokens: %d in / %d out, estimated cost $%.4f\n",
		usage.InputTokens, usage.OutputTokens, usage.TotalCost)
	return nil
}
