package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/adapters/cli/tui"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
)

// NewAccountCmd creates the account subcommand
func NewAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage upstream accounts",
	}

	addCmd := &cobra.Command{
		Use:   "add <priority> <auth_token> <csrf_token> <bearer_token>",
		Short: "Add an account; lower priority is tried first",
		Args:  cobra.ExactArgs(4),
		RunE:  runAccountAdd,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts with masked credentials",
		Args:  cobra.NoArgs,
		RunE:  runAccountList,
	}

	delCmd := &cobra.Command{
		Use:   "del [id]",
		Short: "Remove an account and its relationship facts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAccountDel,
	}

	cmd.AddCommand(addCmd, listCmd, delCmd)
	return cmd
}

func runAccountAdd(cmd *cobra.Command, args []string) error {
	priority, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid priority %q: must be an integer", args[0])
	}

	creds := domain.Credentials{
		AuthToken:   args[1],
		CSRFToken:   args[2],
		BearerToken: args[3],
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	app, err := GetApp(cmd.Context())
	if err != nil {
		return err
	}

	account, err := app.Store.AddAccount(cmd.Context(), priority, creds)
	if err != nil {
		return err
	}

	fmt.Printf("Added account %d with priority %d\n", account.ID, account.Priority)
	return nil
}

func runAccountList(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd.Context())
	if err != nil {
		return err
	}

	accounts, err := app.Store.ListAccounts(cmd.Context())
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts configured")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "Priority", "Auth token", "CSRF token", "Bearer token"})
	for _, a := range accounts {
		t.AppendRow(table.Row{
			a.ID,
			a.Priority,
			tui.MaskToken(a.Credentials.AuthToken),
			tui.MaskToken(a.Credentials.CSRFToken),
			tui.MaskToken(a.Credentials.BearerToken),
		})
	}
	t.Render()
	return nil
}

func runAccountDel(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd.Context())
	if err != nil {
		return err
	}

	var id int64
	if len(args) == 1 {
		id, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account id %q", args[0])
		}
	} else {
		accounts, err := app.Store.ListAccounts(cmd.Context())
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("No accounts configured")
			return nil
		}

		options := make([]tui.MenuOption, 0, len(accounts))
		for _, a := range accounts {
			options = append(options, tui.MenuOption{
				Label: fmt.Sprintf("#%d  priority %d  %s", a.ID, a.Priority, tui.MaskToken(a.Credentials.AuthToken)),
				Value: strconv.FormatInt(a.ID, 10),
			})
		}

		selected, err := tui.RunMenu("Which account should be removed?", options)
		if err != nil {
			return err
		}
		if selected == "" {
			fmt.Println("Cancelled")
			return nil
		}
		id, _ = strconv.ParseInt(selected, 10, 64)
	}

	if err := app.Store.RemoveAccount(cmd.Context(), id); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("no account with id %d", id)
		}
		return err
	}

	fmt.Printf("Removed account %d\n", id)
	return nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
