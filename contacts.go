package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tverho/mailchat-go/internal/addr"
	"github.com/tverho/mailchat-go/internal/store"
)

func newContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List known contacts",
		Args:  cobra.NoArgs,
		RunE:  runContactsList,
	}

	cmd.AddCommand(newContactsAddCmd())

	return cmd
}

func newContactsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <address> [name]...",
		Short: "Add a contact, or update its display name",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runContactsAdd,
	}
}

func runContactsList(cmd *cobra.Command, _ []string) error {
	session, err := NewAccountSession(resolvedCfg)
	if err != nil {
		return err
	}
	defer session.Close()

	contacts, err := session.Store.ListContacts(cmd.Context())
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(contactsToJSON(contacts))
	}

	if len(contacts) == 0 {
		fmt.Println("No contacts yet. Add one with 'mailchat contacts add'.")

		return nil
	}

	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.DisplayName,
			c.Addr.String(),
		})
	}

	printTable(os.Stdout, []string{"ID", "NAME", "ADDRESS"}, rows)

	return nil
}

func runContactsAdd(cmd *cobra.Command, args []string) error {
	a, err := addr.Parse(args[0])
	if err != nil {
		return fmt.Errorf("contact address: %w", err)
	}

	name := addr.NormalizeName(strings.Join(args[1:], " "))

	session, err := NewAccountSession(resolvedCfg)
	if err != nil {
		return err
	}
	defer session.Close()

	if _, err := session.Store.UpsertContact(cmd.Context(), a, name); err != nil {
		return err
	}

	statusf("Contact %s saved.\n", a)

	return nil
}

// contactJSON is the JSON shape of one contact.
type contactJSON struct {
	ID          int64  `json:"id"`
	Addr        string `json:"addr"`
	DisplayName string `json:"display_name,omitempty"`
}

func contactsToJSON(contacts []store.Contact) []contactJSON {
	out := make([]contactJSON, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, contactJSON{
			ID:          c.ID,
			Addr:        c.Addr.String(),
			DisplayName: c.DisplayName,
		})
	}

	return out
}
