package cmd

import (
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <target>",
	Short: "Send one GET request to the daemon and print the body",
	Long: `Send one GET request over the daemon socket and write the response
body to stdout as received. The status code is not checked.`,
	Example: `  container-monitor get /containers/json
  container-monitor get '/containers/web/stats?stream=false'`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	client := newDockerClient(cfg, newLogger(cfg))
	body, err := client.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(body)
	return err
}
