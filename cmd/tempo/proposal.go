package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fentz26/tempo/internal/api"
	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/report"
	"github.com/spf13/cobra"
)

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Draft and track proposals",
}

var proposalAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a draft proposal",
	RunE:  runProposalAdd,
}

var proposalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List proposals",
	RunE:  runProposalList,
}

var proposalShowCmd = &cobra.Command{
	Use:   "show [proposal-id]",
	Short: "Show a proposal with its line items",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalShow,
}

var proposalItemCmd = &cobra.Command{
	Use:   "item [proposal-id]",
	Short: "Add a line item to a draft proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalItem,
}

var proposalStatusCmd = &cobra.Command{
	Use:   "status [proposal-id] [draft|sent|accepted|rejected]",
	Short: "Move a proposal to a new status",
	Args:  cobra.ExactArgs(2),
	RunE:  runProposalStatus,
}

var proposalPDFCmd = &cobra.Command{
	Use:   "pdf [proposal-id]",
	Short: "Download a proposal as PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalPDF,
}

var proposalRmCmd = &cobra.Command{
	Use:   "rm [proposal-id]",
	Short: "Delete a proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalRm,
}

var (
	proposalClient   string
	proposalProject  string
	proposalTitle    string
	proposalCurrency string
	proposalNotes    string
	proposalValid    string
	proposalStatus   string
	itemDesc         string
	itemQty          float64
	itemPrice        string
	outputPath       string
)

func init() {
	proposalCmd.AddCommand(proposalAddCmd, proposalListCmd, proposalShowCmd, proposalItemCmd,
		proposalStatusCmd, proposalPDFCmd, proposalRmCmd)

	proposalAddCmd.Flags().StringVar(&proposalClient, "client", "", "Client ID (required)")
	proposalAddCmd.Flags().StringVar(&proposalProject, "project", "", "Related project ID")
	proposalAddCmd.Flags().StringVar(&proposalTitle, "title", "", "Proposal title (required)")
	proposalAddCmd.Flags().StringVar(&proposalCurrency, "currency", "", "ISO currency code (default USD)")
	proposalAddCmd.Flags().StringVar(&proposalNotes, "notes", "", "Notes printed under the items")
	proposalAddCmd.Flags().StringVar(&proposalValid, "valid-until", "", "Expiry date (YYYY-MM-DD)")
	proposalAddCmd.MarkFlagRequired("client")
	proposalAddCmd.MarkFlagRequired("title")

	proposalListCmd.Flags().StringVar(&proposalClient, "client", "", "Filter by client ID")
	proposalListCmd.Flags().StringVar(&proposalStatus, "status", "", "Filter by status")

	proposalItemCmd.Flags().StringVar(&itemDesc, "desc", "", "Item description (required)")
	proposalItemCmd.Flags().Float64Var(&itemQty, "qty", 1, "Quantity")
	proposalItemCmd.Flags().StringVar(&itemPrice, "price", "", "Unit price, e.g. 120 or 99.90 (required)")
	proposalItemCmd.MarkFlagRequired("desc")
	proposalItemCmd.MarkFlagRequired("price")

	proposalPDFCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default proposal-<id>.pdf)")
}

func runProposalAdd(cmd *cobra.Command, args []string) error {
	valid, err := parseDate(proposalValid)
	if err != nil {
		return err
	}
	in := api.ProposalInput{
		ClientID:   proposalClient,
		ProjectID:  proposalProject,
		Title:      proposalTitle,
		Currency:   proposalCurrency,
		Notes:      proposalNotes,
		ValidUntil: valid,
	}
	var p models.Proposal
	if err := postJSON("/proposals", in, &p); err != nil {
		return err
	}
	fmt.Printf("Created proposal: %s\n", p.ID)
	return nil
}

func runProposalList(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if proposalClient != "" {
		q.Set("client_id", proposalClient)
	}
	if proposalStatus != "" {
		q.Set("status", proposalStatus)
	}
	path := "/proposals"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var proposals []models.Proposal
	if err := getJSON(path, &proposals); err != nil {
		return err
	}
	if len(proposals) == 0 {
		fmt.Println("No proposals found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tITEMS\tTOTAL")
	for i := range proposals {
		p := &proposals[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.ID, truncate(p.Title, 40), p.Status, len(p.Items),
			report.FormatMoney(p.TotalCents(), p.Currency))
	}
	return w.Flush()
}

func runProposalShow(cmd *cobra.Command, args []string) error {
	var p models.Proposal
	if err := getJSON("/proposals/"+url.PathEscape(args[0]), &p); err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", p.ID)
	fmt.Printf("Title:       %s\n", p.Title)
	fmt.Printf("Client:      %s\n", p.ClientID)
	fmt.Printf("Status:      %s\n", p.Status)
	fmt.Printf("Valid until: %s\n", formatTime(p.ValidUntil))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tDESCRIPTION\tQTY\tUNIT\tAMOUNT")
	for i, it := range p.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, truncate(it.Description, 50),
			strconv.FormatFloat(it.Quantity, 'f', -1, 64),
			report.FormatMoney(it.UnitPriceCents, p.Currency),
			report.FormatMoney(it.AmountCents(), p.Currency))
	}
	fmt.Fprintf(w, "\t\t\tTOTAL\t%s\n", report.FormatMoney(p.TotalCents(), p.Currency))
	return w.Flush()
}

func runProposalItem(cmd *cobra.Command, args []string) error {
	price, err := parseMoney(itemPrice)
	if err != nil {
		return err
	}
	item := models.ProposalItem{Description: itemDesc, Quantity: itemQty, UnitPriceCents: price}
	var p models.Proposal
	if err := postJSON("/proposals/"+url.PathEscape(args[0])+"/items", item, &p); err != nil {
		return err
	}
	fmt.Printf("Added item; total now %s\n", report.FormatMoney(p.TotalCents(), p.Currency))
	return nil
}

func runProposalStatus(cmd *cobra.Command, args []string) error {
	var p models.Proposal
	body := map[string]string{"status": args[1]}
	if err := postJSON("/proposals/"+url.PathEscape(args[0])+"/status", body, &p); err != nil {
		return err
	}
	fmt.Printf("Proposal %s is now %s\n", p.ID, p.Status)
	return nil
}

func runProposalPDF(cmd *cobra.Command, args []string) error {
	data, err := apiGet("/proposals/" + url.PathEscape(args[0]) + "/pdf")
	if err != nil {
		return err
	}
	path := outputPath
	if path == "" {
		path = "proposal-" + args[0] + ".pdf"
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func runProposalRm(cmd *cobra.Command, args []string) error {
	if err := apiDelete("/proposals/" + url.PathEscape(args[0])); err != nil {
		return err
	}
	fmt.Printf("Deleted proposal %s\n", args[0])
	return nil
}
