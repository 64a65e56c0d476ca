/*
Copyright © 2024 Dean
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TayoO/embedchain/src/infrastructure/log"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "embedchain",
	Short: "Add data, then ask questions about it",
	Long: `embedchain chunks and embeds documents into a vector store and answers
questions with an LLM, using the closest chunks as context.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	settingDefaultConfig()
}

// initConfig loads .env, then the config file, then sets up logging.
// Environment variables win over the file for every bound key.
func initConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return log.Setup(viper.GetString("log.level"), viper.GetBool("log.development"))
}
