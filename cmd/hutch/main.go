package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/hutch/pkg/config"
	"github.com/cuemby/hutch/pkg/executor"
	"github.com/cuemby/hutch/pkg/lifecycle"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/metrics"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hutch",
	Short: "Hutch - OCI bundles on Proxmox LXC containers",
	Long: `Hutch maps OCI runtime bundles onto Proxmox LXC containers.

It converts a bundle rootfs into a bootable LXC template, assigns a
stable VMID per container, and drives pct and zfs to manage the full
container lifecycle while keeping OCI-compliant state records on disk.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Hutch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(templateCmd)
}

// newEngine loads configuration, initializes logging and metrics, and
// wires a lifecycle engine.
func newEngine() (*lifecycle.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.JSONLog,
	})
	metrics.Register()

	return lifecycle.New(cfg, executor.NewLocal(cfg.CommandTimeout()))
}

var createCmd = &cobra.Command{
	Use:   "create <container-id> <bundle>",
	Short: "Create a container from an OCI bundle or template",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Create(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("✓ Container %s created\n", args[0])
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start <container-id>",
	Short: "Start a created container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Start(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Container %s started\n", args[0])
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <container-id>",
	Short: "Stop a running container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Stop(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Container %s stopped\n", args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <container-id>",
	Short: "Delete a container and its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Container %s deleted\n", args[0])
		return nil
	},
}

var stateCmd = &cobra.Command{
	Use:   "state <container-id>",
	Short: "Print the OCI state record of a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		record, err := engine.State(args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage cached templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		infos, err := engine.TemplateCache().List()
		if err != nil {
			return err
		}

		fmt.Printf("%-40s %-12s %-12s %s\n", "NAME", "SIZE", "SOURCE", "CREATED")
		for _, info := range infos {
			fmt.Printf("%-40s %-12d %-12s %s\n",
				info.Name, info.Size, info.Source, info.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var templatePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove template cache entries not accessed recently",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		pruned, err := engine.TemplateCache().PruneOlderThan(olderThan)
		if err != nil {
			return err
		}
		for _, name := range pruned {
			fmt.Printf("✓ Pruned %s\n", name)
		}
		fmt.Printf("%d templates pruned\n", len(pruned))
		return nil
	},
}

func init() {
	templatePruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "prune entries older than this")
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templatePruneCmd)
}
