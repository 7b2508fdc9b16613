package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/config"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var swapCmd = &cobra.Command{
	Use:   "swap [target images...]",
	Short: "Swap a face onto target images from the command line",
	Long: `Swap the face from the source images onto every target image and write
the results to the output directory. Targets are processed one at a
time with a pause between engine calls; a failed target is reported
and skipped, it never stops the rest of the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringSlice("source", nil, "Source face image (repeat up to 3 times)")
	swapCmd.Flags().String("out", ".", "Output directory for swapped images")
	swapCmd.Flags().Int("pause", 1000, "Pause between engine calls in milliseconds")
	swapCmd.Flags().Bool("preserve-hair", true, "Keep the target person's hairstyle")
	swapCmd.Flags().Bool("match-skin-tone", true, "Blend the swapped face into the target skin tone")
	swapCmd.Flags().Bool("match-lighting", true, "Relight the swapped face to match the target scene")
	swapCmd.Flags().String("scale-lock", string(ai.FaceScaleAuto), "Face scale handling (auto, fixed)")
	swapCmd.Flags().Int("smoothness", 3, "Skin smoothness 0-10")
	swapCmd.Flags().Int("quality", 90, "Output quality 0-100")
	_ = swapCmd.MarkFlagRequired("source")
}

// swapSettingsFromFlags collects the swap settings flags, clamped.
func swapSettingsFromFlags(cmd *cobra.Command) ai.SwapSettings {
	return ai.SwapSettings{
		PreserveHair:   mustGetBool(cmd, "preserve-hair"),
		MatchSkinTone:  mustGetBool(cmd, "match-skin-tone"),
		MatchLighting:  mustGetBool(cmd, "match-lighting"),
		FaceScaleLock:  ai.FaceScaleLock(mustGetString(cmd, "scale-lock")),
		SkinSmoothness: mustGetInt(cmd, "smoothness"),
		OutputQuality:  mustGetInt(cmd, "quality"),
	}.Clamp()
}

// readSourceImages loads the --source flag files, capped at three.
func readSourceImages(paths []string) ([][]byte, error) {
	if len(paths) > 3 {
		fmt.Printf("More than 3 source images given, using the first 3\n")
		paths = paths[:3]
	}

	sources := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read source image %s: %w", path, err)
		}
		sources = append(sources, data)
	}
	return sources, nil
}

func runSwap(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	provider, err := createAIProvider(context.Background(), cfg, providerGemini)
	if err != nil {
		return err
	}

	sources, err := readSourceImages(mustGetStringSlice(cmd, "source"))
	if err != nil {
		return err
	}

	outDir := mustGetString(cmd, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	settings := swapSettingsFromFlags(cmd)
	pause := time.Duration(mustGetInt(cmd, "pause")) * time.Millisecond

	bar := progressbar.NewOptions(len(args),
		progressbar.OptionSetDescription("Swapping faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var failures []string
	for i, path := range args {
		if i > 0 && pause > 0 {
			time.Sleep(pause)
		}

		if err := swapFile(provider, sources, path, outDir, settings); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", path, err))
		}
		bar.Add(1)
	}
	fmt.Println()

	usage := provider.GetUsage()
	fmt.Printf("\nDone: %d swapped, %d failed\n", len(args)-len(failures), len(failures))
	fmt.Printf("Tokens: %d in / %d out, estimated cost $%.4f\n",
		usage.InputTokens, usage.OutputTokens, usage.TotalCost)

	for _, failure := range failures {
		fmt.Printf("  failed: %s\n", failure)
	}
	return nil
}

// swapFile runs one target through the engine and writes the result next to
// the original's name in the output directory.
func swapFile(provider ai.Provider, sources [][]byte, path, outDir string, settings ai.SwapSettings) error {
	target, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read target: %w", err)
	}

	result, err := provider.SwapFace(context.Background(), sources, target, settings)
	if err != nil {
		return err
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	outPath := filepath.Join(outDir, base[:len(base)-len(ext)]+"-swapped"+ext)
	if err := os.WriteFile(outPath, result, 0o600); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
