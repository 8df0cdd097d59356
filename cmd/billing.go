package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clinicops/clinic-console/internal"
	"github.com/clinicops/clinic-console/internal/billing"
)

var (
	invoicePatientID string
	invoiceAmount    int64
	invoiceDesc      string

	paymentInvoiceID string
	paymentAmount    int64
	paymentMethod    string
)

var billingCmd = &cobra.Command{
	Use:   "billing",
	Short: "Invoices, payments, products and expenses",
}

var billingInvoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "List invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			list, err := deps.Billing.ListInvoices(ctx)
			if err != nil {
				return fmt.Errorf("could not list invoices: %s", internal.ErrorMessage(err))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNUMBER\tPATIENT\tAMOUNT\tSTATUS")
			for _, inv := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", inv.ID, inv.Number, inv.PatientID, float64(inv.AmountCents)/100, inv.Status)
			}
			return w.Flush()
		})
	},
}

var billingInvoiceCreateCmd = &cobra.Command{
	Use:   "invoice-create",
	Short: "Create an invoice",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			inv, err := deps.Billing.CreateInvoice(ctx, billing.CreateInvoiceDTO{
				PatientID:   invoicePatientID,
				AmountCents: invoiceAmount,
				Description: invoiceDesc,
			})
			if err != nil {
				return fmt.Errorf("could not create invoice: %s", internal.ErrorMessage(err))
			}
			fmt.Printf("Invoice %s created\n", inv.ID)
			return nil
		})
	},
}

var billingPayCmd = &cobra.Command{
	Use:   "pay",
	Short: "Record a payment against an invoice",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			payment, err := deps.Billing.RecordPayment(ctx, billing.RecordPaymentDTO{
				InvoiceID:   paymentInvoiceID,
				AmountCents: paymentAmount,
				Method:      paymentMethod,
			})
			if err != nil {
				return fmt.Errorf("could not record payment: %s", internal.ErrorMessage(err))
			}
			fmt.Printf("Payment %s recorded (%s)\n", payment.ID, payment.Status)
			return nil
		})
	},
}

var billingProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			list, err := deps.Billing.ListProducts(ctx)
			if err != nil {
				return fmt.Errorf("could not list products: %s", internal.ErrorMessage(err))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK")
			for _, p := range list {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", p.ID, p.Name, float64(p.PriceCents)/100, p.Stock)
			}
			return w.Flush()
		})
	},
}

var billingExpensesCmd = &cobra.Command{
	Use:   "expenses",
	Short: "List expenses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			list, err := deps.Billing.ListExpenses(ctx)
			if err != nil {
				return fmt.Errorf("could not list expenses: %s", internal.ErrorMessage(err))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDESCRIPTION\tAMOUNT\tCATEGORY")
			for _, e := range list {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", e.ID, e.Description, float64(e.AmountCents)/100, e.Category)
			}
			return w.Flush()
		})
	},
}

func init() {
	billingInvoiceCreateCmd.Flags().StringVar(&invoicePatientID, "patient", "", "patient id")
	billingInvoiceCreateCmd.Flags().Int64Var(&invoiceAmount, "amount", 0, "amount in cents")
	billingInvoiceCreateCmd.Flags().StringVar(&invoiceDesc, "description", "", "invoice description")

	billingPayCmd.Flags().StringVar(&paymentInvoiceID, "invoice", "", "invoice id")
	billingPayCmd.Flags().Int64Var(&paymentAmount, "amount", 0, "amount in cents")
	billingPayCmd.Flags().StringVar(&paymentMethod, "method", "cash", "payment method")

	billingCmd.AddCommand(billingInvoicesCmd)
	billingCmd.AddCommand(billingInvoiceCreateCmd)
	billingCmd.AddCommand(billingPayCmd)
	billingCmd.AddCommand(billingProductsCmd)
	billingCmd.AddCommand(billingExpensesCmd)
}
