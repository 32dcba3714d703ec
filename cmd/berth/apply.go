package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cuemby/berth/pkg/client"
	"github.com/cuemby/berth/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a configuration file",
	Long: `Register nodes or replace the placement policy from a YAML file.

A file may hold several documents separated by "---".

Examples:
  # Register a worker node
  berth apply -f node.yaml

  # Apply a whole cluster layout
  berth apply -f cluster.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

const (
	KindNode   = "Node"
	KindPolicy = "Policy"
)

// Resource is one YAML document understood by apply
type Resource struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       yaml.Node        `yaml:"spec"`
}

type ResourceMetadata struct {
	Name string `yaml:"name"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	resources, err := parseResources(f)
	if err != nil {
		return err
	}

	c, err := connect(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	for i := range resources {
		if err := applyResource(c, &resources[i]); err != nil {
			return err
		}
	}
	return nil
}

// parseResources decodes every document in r
func parseResources(r io.Reader) ([]Resource, error) {
	var resources []Resource
	dec := yaml.NewDecoder(r)
	for {
		var res Resource
		err := dec.Decode(&res)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML document %d: %w", len(resources)+1, err)
		}
		if res.Kind == "" {
			continue
		}
		resources = append(resources, res)
	}
	return resources, nil
}

func applyResource(c *client.Client, res *Resource) error {
	switch res.Kind {
	case KindNode:
		node, err := res.node()
		if err != nil {
			return err
		}
		if _, err := c.PutNode(node); err != nil {
			return fmt.Errorf("failed to apply node %s: %w", node.ID, err)
		}
		fmt.Printf("✓ Node applied: %s (%s)\n", node.ID, node.Host)
	case KindPolicy:
		policy, err := res.policy()
		if err != nil {
			return err
		}
		if _, err := c.PutPolicy(policy); err != nil {
			return fmt.Errorf("failed to apply policy: %w", err)
		}
		fmt.Printf("✓ Policy applied: %s (max %d per node)\n", policy.Strategy, policy.MaxInstancesPerNode)
	default:
		return fmt.Errorf("unsupported resource kind: %s", res.Kind)
	}
	return nil
}

// node decodes a Node spec. metadata.name is the node ID unless the spec sets one.
func (r *Resource) node() (*types.WorkerNode, error) {
	node := &types.WorkerNode{Role: types.NodeRoleWorker}
	if err := r.Spec.Decode(node); err != nil {
		return nil, fmt.Errorf("invalid node spec %q: %w", r.Metadata.Name, err)
	}
	if node.ID == "" {
		node.ID = r.Metadata.Name
	}
	if err := node.Validate(); err != nil {
		return nil, err
	}
	return node, nil
}

// policy decodes a Policy spec over the default policy
func (r *Resource) policy() (*types.PlacementPolicy, error) {
	policy := types.DefaultPolicy()
	if err := r.Spec.Decode(policy); err != nil {
		return nil, fmt.Errorf("invalid policy spec: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}
