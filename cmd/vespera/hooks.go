package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/hooks"
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "List registered hooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := hooks.NewRegistry()
		if err := hooks.RegisterBuiltins(registry); err != nil {
			return err
		}

		fmt.Printf("%-22s %-8s %-10s %-28s %s\n", "HOOK", "PRIO", "ROLLBACK", "TRIGGERS", "TAGS")
		for _, reg := range registry.All() {
			triggers := make([]string, len(reg.Triggers))
			for i, t := range reg.Triggers {
				triggers[i] = string(t)
			}
			fmt.Printf("%-22s %-8d %-10v %-28s %s\n",
				reg.Hook.ID(), reg.Priority, reg.Hook.SupportsRollback(),
				strings.Join(triggers, ","), strings.Join(reg.Tags, ","))
		}
		return nil
	},
}
