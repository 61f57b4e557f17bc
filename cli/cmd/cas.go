package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tordoze/nanogit/cas"
)

var casDir string

var casCmd = &cobra.Command{
	Use:   "cas",
	Short: "Interact with the chunked content-addressed object store",
}

var casPutCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "Store a file in the CAS, printing its object id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCASStore()
		if err != nil {
			return err
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		oid, err := store.Store(context.Background(), "blob", content)
		if err != nil {
			return fmt.Errorf("storing %s: %w", args[0], err)
		}

		if getOutputFormat() == "json" {
			fmt.Printf("{\"oid\":%q}\n", oid)
			return nil
		}
		color.Green("stored %s as %s", args[0], oid)
		return nil
	},
}

var casGetCmd = &cobra.Command{
	Use:   "get <oid> <destination>",
	Short: "Fetch an object from the CAS by object id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCASStore()
		if err != nil {
			return err
		}

		_, content, err := store.Get(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("fetching %s: %w", args[0], err)
		}

		if err := os.WriteFile(args[1], content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", args[1], err)
		}

		if getOutputFormat() == "json" {
			fmt.Printf("{\"bytes\":%d}\n", len(content))
			return nil
		}
		color.Green("wrote %d bytes to %s", len(content), args[1])
		return nil
	},
}

// openCASStore builds the CAS store the cas/lfs commands share, backed
// by a local disk directory (default ".nanogit/cas", overridable with
// --dir) rather than a remote object store.
func openCASStore() (*cas.Store, error) {
	backend, err := cas.NewDiskBackend(casDir)
	if err != nil {
		return nil, err
	}
	return cas.New(backend, cfg.CASConfig())
}

func init() {
	casCmd.PersistentFlags().StringVar(&casDir, "dir", ".nanogit/cas", "Local directory backing the CAS store")
	casCmd.AddCommand(casPutCmd, casGetCmd)
	rootCmd.AddCommand(casCmd)
}
