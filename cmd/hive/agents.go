package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List registered agents and their capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, agent := range a.registry.AllAgents() {
			fmt.Printf("%s  %s\n",
				color.New(color.Bold).Sprintf("%-14s", agent.ID),
				agent.Name)
			fmt.Printf("  capabilities: %s\n", strings.Join(agent.Capabilities, ", "))
			fmt.Printf("  capacity:     %d concurrent\n", agent.MaxConcurrent)
		}
		return nil
	},
}
