package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tordoze/nanogit/transport"
)

var transportCmd = &cobra.Command{
	Use:   "transport",
	Short: "Inspect how a repository URL would be routed",
}

var transportRouteCmd = &cobra.Command{
	Use:   "route <url>",
	Short: "Show whether a URL routes through the anonymized or clearnet transport",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		router := transport.NewRouter()
		dest, err := router.Route(args[0])
		if err != nil {
			return fmt.Errorf("routing %s: %w", args[0], err)
		}

		forced := cfg.UseAnonTransport && !dest.Anonymized
		anonymized := dest.Anonymized || cfg.UseAnonTransport

		if getOutputFormat() == "json" {
			fmt.Printf("{\"host\":%q,\"port\":%d,\"repo_path\":%q,\"scheme\":%q,\"anonymized\":%v}\n",
				dest.Host, dest.Port, dest.RepoPath, dest.UnderlyingScheme, anonymized)
			return nil
		}

		fmt.Printf("host:       %s\n", dest.Host)
		fmt.Printf("port:       %d\n", dest.Port)
		fmt.Printf("repo path:  %s\n", dest.RepoPath)
		fmt.Printf("scheme:     %s\n", dest.UnderlyingScheme)
		if anonymized {
			suffix := ""
			if forced {
				suffix = " (forced by use_anon_transport)"
			}
			color.Yellow("transport:  anonymized%s", suffix)
		} else {
			color.Green("transport:  clearnet")
		}

		pc := cfg.PoolConfig()
		fmt.Printf("pool:       max %d per destination, %s acquisition timeout, isolate_streams=%v\n",
			pc.MaxPerDest, pc.AcquisitionTimeout, pc.IsolateStreams)
		return nil
	},
}

func init() {
	transportCmd.AddCommand(transportRouteCmd)
	rootCmd.AddCommand(transportCmd)
}
