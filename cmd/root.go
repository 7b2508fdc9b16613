package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-studio",
	Short: "A face-swap studio powered by generative AI",
	Long: `Face Studio lets you upload a handful of source face images and apply
that face to any number of target photos using a generative image model
(Gemini). It ships a web UI for interactive batch work and CLI commands
for scripted swaps.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
