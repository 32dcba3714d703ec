package main

import (
	"fmt"
	"os"

	"github.com/cuemby/berth/pkg/client"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const defaultServer = "127.0.0.1:7070"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "berth",
	Short: "Berth - placement engine for plug instances",
	Long: `Berth decides which worker node receives each new plug instance
and which port it listens on.

Run "berth serve" on the primary node; the other commands talk to it over
HTTP.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Berth version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("server", defaultServer, "Berth server address")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(placeCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(policyCmd)
}

// connect builds a client for the --server flag
func connect(cmd *cobra.Command) (*client.Client, error) {
	addr, _ := cmd.Flags().GetString("server")
	c, err := client.NewClient(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return c, nil
}

var placeCmd = &cobra.Command{
	Use:   "place [WORKLOAD]",
	Short: "Place one plug instance",
	Long: `Ask the server for a node and port for one plug instance.

The optional WORKLOAD identifier is matched against the policy's affinity
rules.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		var workload string
		if len(args) == 1 {
			workload = args[0]
		}

		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		decision, err := c.Place(workload, dryRun)
		if err != nil {
			return err
		}

		fmt.Printf("✓ %s:%d on %s\n", decision.Host, decision.Port, decision.NodeID)
		fmt.Printf("  Strategy: %s\n", decision.Strategy)
		fmt.Printf("  Reason:   %s\n", decision.Reason)
		fmt.Printf("  Decision: %s\n", decision.ID)
		if dryRun {
			fmt.Println("  (dry run, nothing recorded)")
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show cluster totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		s, err := c.Summary()
		if err != nil {
			return err
		}

		fmt.Printf("Nodes:        %d (%d healthy)\n", s.TotalNodes, s.HealthyNodes)
		fmt.Printf("Instances:    %d / %d\n", s.TotalPlugInstances, s.TotalCapacity)
		fmt.Printf("Utilization:  %d%%\n", s.Utilization)
		fmt.Printf("Avg memory:   %d%%\n", s.AvgMemoryPct)
		return nil
	},
}

func init() {
	placeCmd.Flags().Bool("dry-run", false, "Return a decision without counting the instance")
}

// Node commands
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage worker nodes",
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List nodes in the cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		nodes, err := c.ListNodes()
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			fmt.Println("No nodes registered")
			return nil
		}

		fmt.Printf("%-16s %-20s %-8s %-8s %-10s %-8s %s\n",
			"ID", "HOST", "ROLE", "HEALTHY", "INSTANCES", "MEMORY", "PORTS")
		for _, n := range nodes {
			mem := "-"
			if n.Runtime.MemoryUsedPercent != nil {
				mem = fmt.Sprintf("%.0f%%", *n.Runtime.MemoryUsedPercent)
			}
			fmt.Printf("%-16s %-20s %-8s %-8t %-10d %-8s %d-%d\n",
				n.ID, n.Host, n.Role, n.IsHealthy(), n.InstanceCount(), mem,
				n.PortRange.Start, n.PortRange.End)
		}
		return nil
	},
}

var nodeRemoveCmd = &cobra.Command{
	Use:     "rm NODE",
	Aliases: []string{"remove"},
	Short:   "Remove a node from the registry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.RemoveNode(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Node removed: %s\n", args[0])
		return nil
	},
}

var nodeDrainCmd = &cobra.Command{
	Use:   "drain NODE",
	Short: "Check whether a node has gone silent long enough to drain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Drain(args[0])
		if err != nil {
			return err
		}

		last := "never"
		if resp.LastHeartbeat != nil {
			last = resp.LastHeartbeat.Format("2006-01-02 15:04:05 MST")
		}
		fmt.Printf("Node:           %s\n", resp.NodeID)
		fmt.Printf("Last heartbeat: %s\n", last)
		fmt.Printf("Drain:          %t\n", resp.Drain)
		return nil
	},
}

func init() {
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeRemoveCmd)
	nodeCmd.AddCommand(nodeDrainCmd)
}

// Policy commands
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect the placement policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active placement policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		p, err := c.GetPolicy()
		if err != nil {
			return err
		}

		fmt.Printf("Strategy:              %s\n", p.Strategy)
		fmt.Printf("Fallback strategy:     %s\n", p.FallbackStrategy)
		fmt.Printf("Max instances / node:  %d\n", p.MaxInstancesPerNode)
		fmt.Printf("Reserved memory:       %.0f%%\n", p.ReservedMemoryPercent)
		fmt.Printf("Health check interval: %s\n", p.HealthCheckInterval)
		if len(p.AffinityRules) > 0 {
			fmt.Println("Affinity rules:")
			for _, r := range p.AffinityRules {
				fmt.Printf("  %s -> %s (%s)\n", r.Service, r.NodeID, r.Reason)
			}
		}
		return nil
	},
}

func init() {
	policyCmd.AddCommand(policyShowCmd)
}
