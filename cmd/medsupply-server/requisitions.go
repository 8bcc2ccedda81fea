package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/medsupply/medsupply/internal/config"
	"github.com/medsupply/medsupply/internal/domain/requisition"
	"github.com/medsupply/medsupply/pkg/client"
)

// requisitionsCmd talks to a running server through pkg/client. API_BASE_URL
// and API_TOKEN select the server and credentials.
func requisitionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requisitions",
		Aliases: []string{"req"},
		Short:   "Inspect and act on requisitions of a running server",
	}
	cmd.AddCommand(reqListCmd(), reqShowCmd(), reqCreateCmd(), reqApplyCmd(), reqSuggestCmd())
	return cmd
}

func apiClient() (*client.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return client.New(cfg.APIBaseURL, cfg.APIToken), cfg, nil
}

func reqListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requisitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := apiClient()
			if err != nil {
				return err
			}
			f := cmd.Flags()
			facility, _ := f.GetString("facility")
			status, _ := f.GetString("status")
			priority, _ := f.GetString("priority")
			kind, _ := f.GetString("kind")
			item, _ := f.GetString("item")

			reqs, err := c.AllRequisitions(cmd.Context(), client.ListOptions{
				Facility: facility,
				Status:   requisition.Status(status),
				Priority: requisition.Priority(priority),
				Kind:     requisition.Kind(kind),
				Item:     item,
			})
			if err != nil {
				return err
			}
			printRequisitions(cmd.OutOrStdout(), reqs)
			return nil
		},
	}
	cmd.Flags().String("facility", "", "Facility (super and warehouse admins only)")
	cmd.Flags().String("status", "", "Filter by status")
	cmd.Flags().String("priority", "", "Filter by priority")
	cmd.Flags().String("kind", "", "individual or bulk")
	cmd.Flags().String("item", "", "Filter by item name")
	return cmd
}

func reqShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one requisition with its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := apiClient()
			if err != nil {
				return err
			}
			r, err := c.GetRequisition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRequisition(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func reqCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Raise an individual requisition",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := apiClient()
			if err != nil {
				return err
			}
			f := cmd.Flags()
			in := requisition.NewRequest{}
			in.ItemName, _ = f.GetString("item")
			in.Quantity, _ = f.GetInt("qty")
			in.FacilityStock, _ = f.GetInt("stock")
			in.Department, _ = f.GetString("department")
			p, _ := f.GetString("priority")
			in.Priority = requisition.Priority(p)
			if exp, _ := f.GetString("expiry"); exp != "" {
				t, err := time.Parse("2006-01-02", exp)
				if err != nil {
					return fmt.Errorf("--expiry: %w", err)
				}
				in.ExpiryDate = &t
			}

			r, err := c.CreateRequisition(cmd.Context(), in)
			if err != nil {
				return err
			}
			printRequisition(cmd.OutOrStdout(), r)
			return nil
		},
	}
	cmd.Flags().String("item", "", "Item name")
	cmd.Flags().Int("qty", 0, "Requested quantity")
	cmd.Flags().Int("stock", 0, "Current facility stock")
	cmd.Flags().String("priority", string(requisition.PriorityNormal), "Normal, High or Urgent")
	cmd.Flags().String("expiry", "", "Expiry date of current stock (YYYY-MM-DD)")
	cmd.Flags().String("department", "", "Requesting department")
	return cmd
}

func reqApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply ID ACTION",
		Short: "Apply deliver, raise, reject or complete to a requisition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := apiClient()
			if err != nil {
				return err
			}
			f := cmd.Flags()
			req := requisition.ActionRequest{Action: args[1]}
			req.Quantity, _ = f.GetInt("qty")
			req.Remarks, _ = f.GetString("remarks")
			req.Reason, _ = f.GetString("reason")
			req.Version, _ = f.GetInt("version")
			p, _ := f.GetString("priority")
			req.Priority = requisition.Priority(p)

			r, err := c.Apply(cmd.Context(), args[0], req)
			if client.IsConflict(err) {
				return fmt.Errorf("%s changed since version %d, reload and retry", args[0], req.Version)
			}
			if err != nil {
				return err
			}
			printRequisition(cmd.OutOrStdout(), r)
			return nil
		},
	}
	cmd.Flags().Int("qty", 0, "Quantity delivered or raised")
	cmd.Flags().String("remarks", "", "Remarks for the timeline")
	cmd.Flags().String("reason", "", "Rejection reason")
	cmd.Flags().String("priority", "", "Priority for a warehouse raise")
	cmd.Flags().Int("version", 0, "Expected version; 0 skips the check")
	return cmd
}

func reqSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Show restock suggestions",
		Long: "Show restock suggestions. With --local the requisitions are fetched and\n" +
			"suggestions are computed here using AVERAGE_MONTHLY_USAGE.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := apiClient()
			if err != nil {
				return err
			}
			facility, _ := cmd.Flags().GetString("facility")
			local, _ := cmd.Flags().GetBool("local")

			var sg []requisition.Suggestion
			if local {
				reqs, err := c.AllRequisitions(cmd.Context(), client.ListOptions{Facility: facility})
				if err != nil {
					return err
				}
				m := requisition.NewManager(requisition.Session{Facility: facility}, requisition.NewFixedUsage(cfg.AverageMonthlyUsage))
				m.Load(reqs)
				if m.TakeSuggestionPrompt() {
					fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) need restocking\n", len(m.Suggestions()))
				}
				sg = m.Suggestions()
			} else {
				sg, err = c.Suggestions(cmd.Context(), facility)
				if err != nil {
					return err
				}
			}
			printSuggestions(cmd.OutOrStdout(), sg)
			return nil
		},
	}
	cmd.Flags().String("facility", "", "Facility to compute suggestions for")
	cmd.Flags().Bool("local", false, "Compute suggestions locally")
	return cmd
}

func printRequisitions(w io.Writer, reqs []*requisition.Requisition) {
	if len(reqs) == 0 {
		fmt.Fprintln(w, "No requisitions found.")
		return
	}
	fmt.Fprintf(w, "%-14s %-10s %-24s %6s %-8s %-10s %s\n", "ID", "KIND", "ITEM", "QTY", "PRIORITY", "STATUS", "FACILITY")
	for _, r := range reqs {
		fmt.Fprintf(w, "%-14s %-10s %-24s %6d %-8s %-10s %s\n",
			r.ID, r.Kind, truncate(r.ItemName, 24), r.Quantity, r.Priority, r.Status, r.Facility)
	}
}

func printRequisition(w io.Writer, r *requisition.Requisition) {
	fmt.Fprintf(w, "%s  %s  v%d\n", r.ID, r.Status, r.Version)
	fmt.Fprintf(w, "  facility: %s\n  item:     %s\n  quantity: %d (stock %d)\n  priority: %s\n",
		r.Facility, r.ItemName, r.Quantity, r.FacilityStock, r.Priority)
	for _, b := range r.BulkItems {
		fmt.Fprintf(w, "    - %s x%d [%s]\n", b.ItemName, b.Quantity, b.Priority)
	}
	if len(r.Timeline) > 0 {
		fmt.Fprintln(w, "  timeline:")
		for _, t := range r.Timeline {
			fmt.Fprintf(w, "    %s  %s\n", t.At.Format("2006-01-02 15:04"), t.Label)
		}
	}
	for _, rm := range r.Remarks {
		fmt.Fprintf(w, "  remark (%s): %s\n", rm.Actor, rm.Text)
	}
}

func printSuggestions(w io.Writer, sg []requisition.Suggestion) {
	if len(sg) == 0 {
		fmt.Fprintln(w, "No restock suggestions.")
		return
	}
	fmt.Fprintf(w, "%-24s %-13s %-8s %6s %6s\n", "ITEM", "REASON", "PRIORITY", "STOCK", "QTY")
	for _, s := range sg {
		fmt.Fprintf(w, "%-24s %-13s %-8s %6d %6d\n",
			truncate(s.ItemName, 24), s.Reason, s.Priority, s.CurrentStock, s.Quantity)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-1]) + "~"
}
