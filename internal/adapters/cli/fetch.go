package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
)

var (
	cursorFlag string
	debugFlag  bool
)

// NewMediaCmd creates the media subcommand
func NewMediaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media <name|url>",
		Short: "Fetch one page of a target's media listing",
		Args:  cobra.ExactArgs(1),
		RunE:  runMedia,
	}

	cmd.Flags().StringVar(&cursorFlag, "cursor", "", "Page cursor returned by a previous call")
	cmd.Flags().BoolVar(&debugFlag, "debug", false, "Print the undecoded upstream response")

	return cmd
}

// NewItemCmd creates the item subcommand
func NewItemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item <id|url>",
		Short: "Fetch one item's canonical payload",
		Args:  cobra.ExactArgs(1),
		RunE:  runItem,
	}

	cmd.Flags().BoolVar(&debugFlag, "debug", false, "Print the undecoded upstream response")

	return cmd
}

func runMedia(cmd *cobra.Command, args []string) error {
	target, err := domain.ParseTargetInput(args[0])
	if err != nil {
		return err
	}

	app, err := GetApp(cmd.Context())
	if err != nil {
		return err
	}

	if debugFlag {
		raw, err := app.Fetcher.DebugMedia(cmd.Context(), target.Name, cursorFlag)
		if err != nil {
			return fmt.Errorf("%s: %s", target.Name, domain.Note(err))
		}
		return printJSON(raw)
	}

	page, err := app.Fetcher.Media(cmd.Context(), target.Name, cursorFlag)
	if err != nil {
		return fmt.Errorf("%s: %s", target.Name, domain.Note(err))
	}

	for _, id := range page.ItemIDs {
		fmt.Println(id)
	}
	if page.NextCursor != "" {
		fmt.Fprintf(os.Stderr, "next cursor: %s\n", page.NextCursor)
	}
	return nil
}

func runItem(cmd *cobra.Command, args []string) error {
	itemID, err := domain.ParseItemInput(args[0])
	if err != nil {
		return err
	}

	app, err := GetApp(cmd.Context())
	if err != nil {
		return err
	}

	fetch := app.Fetcher.Item
	if debugFlag {
		fetch = app.Fetcher.DebugItem
	}

	payload, err := fetch(cmd.Context(), itemID)
	if err != nil {
		return fmt.Errorf("%s: %s", itemID, domain.Note(err))
	}
	return printJSON(payload)
}

func printJSON(payload json.RawMessage) error {
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
