package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicops/clinic-console/internal"
	"github.com/clinicops/clinic-console/internal/appointments"
)

var (
	apptPatientID    string
	apptPractitioner string
	apptTime         string
	apptNotes        string
)

var appointmentsCmd = &cobra.Command{
	Use:   "appointments",
	Short: "Appointment management",
}

var appointmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List appointments",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			list, err := deps.Appointments.List(ctx)
			if err != nil {
				return fmt.Errorf("could not list appointments: %s", internal.ErrorMessage(err))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPATIENT\tPRACTITIONER\tWHEN\tSTATUS")
			for _, a := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.PatientID, a.Practitioner, a.ScheduledAt.Local().Format("2006-01-02 15:04"), a.Status)
			}
			return w.Flush()
		})
	},
}

var appointmentsScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule an appointment",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			when, err := time.Parse(time.RFC3339, apptTime)
			if err != nil {
				return fmt.Errorf("invalid --at value, want RFC3339 timestamp: %w", err)
			}

			appt, err := deps.Appointments.Schedule(ctx, appointments.ScheduleAppointmentDTO{
				PatientID:    apptPatientID,
				Practitioner: apptPractitioner,
				ScheduledAt:  when,
				Notes:        apptNotes,
			})
			if err != nil {
				return fmt.Errorf("could not schedule appointment: %s", internal.ErrorMessage(err))
			}
			fmt.Printf("Appointment %s scheduled for %s\n", appt.ID, appt.ScheduledAt.Local().Format("2006-01-02 15:04"))
			return nil
		})
	},
}

var appointmentsCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel an appointment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			appt, err := deps.Appointments.Cancel(ctx, args[0])
			if err != nil {
				return fmt.Errorf("could not cancel appointment: %s", internal.ErrorMessage(err))
			}
			fmt.Printf("Appointment %s cancelled\n", appt.ID)
			return nil
		})
	},
}

func init() {
	appointmentsScheduleCmd.Flags().StringVar(&apptPatientID, "patient", "", "patient id")
	appointmentsScheduleCmd.Flags().StringVar(&apptPractitioner, "practitioner", "", "practitioner name")
	appointmentsScheduleCmd.Flags().StringVar(&apptTime, "at", "", "scheduled time (RFC3339)")
	appointmentsScheduleCmd.Flags().StringVar(&apptNotes, "notes", "", "notes")

	appointmentsCmd.AddCommand(appointmentsListCmd)
	appointmentsCmd.AddCommand(appointmentsScheduleCmd)
	appointmentsCmd.AddCommand(appointmentsCancelCmd)
}
