package cmd

import (
	"os"

	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fractal-gallery",
	Short: "Content-addressed fractal cache and gallery service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.InitConfig()
		_, err := utils.InitLogger(config.Get().LogLevel, config.IsDevelopment())
		return err
	},
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (eg: /etc/fractal-gallery/config.yaml)")
	err := viper.BindPFlag("config_file_path", rootCmd.PersistentFlags().Lookup("config"))
	if err != nil {
		return
	}
}
