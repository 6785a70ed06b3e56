package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fentz26/tempo/internal/api"
	"github.com/fentz26/tempo/internal/models"
	"github.com/spf13/cobra"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage clients",
}

var clientAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a client",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientAdd,
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	RunE:  runClientList,
}

var clientRmCmd = &cobra.Command{
	Use:   "rm [client-id]",
	Short: "Delete a client without projects or proposals",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientRm,
}

var (
	clientEmail   string
	clientCompany string
	clientNotes   string
)

func init() {
	clientCmd.AddCommand(clientAddCmd, clientListCmd, clientRmCmd)

	clientAddCmd.Flags().StringVar(&clientEmail, "email", "", "Contact email")
	clientAddCmd.Flags().StringVar(&clientCompany, "company", "", "Company name")
	clientAddCmd.Flags().StringVar(&clientNotes, "notes", "", "Free-form notes")
}

func runClientAdd(cmd *cobra.Command, args []string) error {
	in := api.ClientInput{Name: args[0], Email: clientEmail, Company: clientCompany, Notes: clientNotes}
	var c models.Client
	if err := postJSON("/clients", in, &c); err != nil {
		return err
	}
	fmt.Printf("Created client: %s\n", c.ID)
	return nil
}

func runClientList(cmd *cobra.Command, args []string) error {
	var clients []models.Client
	if err := getJSON("/clients", &clients); err != nil {
		return err
	}
	if len(clients) == 0 {
		fmt.Println("No clients found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tEMAIL")
	for _, c := range clients {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, truncate(c.Name, 30), c.Company, c.Email)
	}
	return w.Flush()
}

func runClientRm(cmd *cobra.Command, args []string) error {
	if err := apiDelete("/clients/" + args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted client %s\n", args[0])
	return nil
}
