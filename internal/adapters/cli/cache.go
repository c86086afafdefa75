package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache subcommand
func NewCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE:  runCacheStatus,
	}
}

// NewNamesCmd creates the names subcommand
func NewNamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Inspect the display name to target id mapping",
		RunE:  runNamesList,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List resolved names",
		Args:  cobra.NoArgs,
		RunE:  runNamesList,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget every resolved name; they are looked up again on demand",
		Args:  cobra.NoArgs,
		RunE:  runNamesClear,
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd.Context())
	if err != nil {
		return err
	}

	stats, err := app.CacheSvc.Stats(cmd.Context())
	if err != nil {
		return err
	}

	// the caches live in the server process, a fresh CLI process starts empty
	fmt.Println()
	fmt.Println("Cache Statistics:")
	fmt.Printf("  Accounts:        %d\n", stats.Accounts)
	fmt.Printf("  Cached items:    %d\n", stats.CachedItems)
	fmt.Printf("  Recache entries: %d\n", stats.RecacheEntries)
	fmt.Printf("  Result TTL:      %s\n", app.Config.Cache.ResultTTL)
	fmt.Println()

	return nil
}

func runNamesList(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd.Context())
	if err != nil {
		return err
	}

	names, err := app.CacheSvc.Names(cmd.Context())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No names resolved yet")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Name", "Target ID"})
	for _, n := range names {
		t.AppendRow(table.Row{n.Name, n.TargetID})
	}
	t.Render()
	return nil
}

func runNamesClear(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd.Context())
	if err != nil {
		return err
	}

	cleared, err := app.CacheSvc.ClearNames(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d names\n", cleared)
	return nil
}
