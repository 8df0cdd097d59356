package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clinicops/clinic-console/internal"
	"github.com/clinicops/clinic-console/internal/patients"
)

var (
	patientFirstName   string
	patientLastName    string
	patientEmail       string
	patientPhone       string
	patientDateOfBirth string
)

var patientsCmd = &cobra.Command{
	Use:   "patients",
	Short: "Patient management",
}

var patientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patients",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			list, err := deps.Patients.List(ctx)
			if err != nil {
				return fmt.Errorf("could not list patients: %s", internal.ErrorMessage(err))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tDOB")
			for _, p := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.FullName(), p.Email, p.Phone, p.DateOfBirth)
			}
			return w.Flush()
		})
	},
}

var patientsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new patient",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			patient, err := deps.Patients.Create(ctx, patients.CreatePatientDTO{
				FirstName:   patientFirstName,
				LastName:    patientLastName,
				Email:       patientEmail,
				Phone:       patientPhone,
				DateOfBirth: patientDateOfBirth,
			})
			if err != nil {
				return fmt.Errorf("could not create patient: %s", internal.ErrorMessage(err))
			}
			fmt.Printf("Patient %s created (%s)\n", patient.FullName(), patient.ID)
			return nil
		})
	},
}

func init() {
	patientsAddCmd.Flags().StringVar(&patientFirstName, "first-name", "", "first name")
	patientsAddCmd.Flags().StringVar(&patientLastName, "last-name", "", "last name")
	patientsAddCmd.Flags().StringVar(&patientEmail, "email", "", "email address")
	patientsAddCmd.Flags().StringVar(&patientPhone, "phone", "", "phone number")
	patientsAddCmd.Flags().StringVar(&patientDateOfBirth, "dob", "", "date of birth (YYYY-MM-DD)")

	patientsCmd.AddCommand(patientsListCmd)
	patientsCmd.AddCommand(patientsAddCmd)
}
