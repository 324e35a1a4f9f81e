package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/Alijeyrad/dentlab_backend/cmd/http"
	systemcmd "github.com/Alijeyrad/dentlab_backend/cmd/system"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dentlab",
	Short: "Case management backend for dental clinics and laboratories.",
	Long: `dentlab connects dental clinics with production labs: clinics submit cases,
admins review and route them, labs assign technicians and report progress,
and every party chats and gets notified in real time.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
