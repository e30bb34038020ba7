package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IvaDonGon/TusGastos/internal/cli"
	"github.com/IvaDonGon/TusGastos/internal/core"
	"github.com/IvaDonGon/TusGastos/internal/services"
)

var flagAllUsers bool

var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the month's missing occurrences",
	Long:  "Create one pending occurrence per active recurring definition for the month of --date. Safe to run repeatedly.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if flagAllUsers {
			sum, err := session.app.Scheduler().RunOnce(cmd.Context())
			fmt.Printf("usuarios: %d  creadas: %d  alertas: %d  fallidos: %d\n", sum.Users, sum.Created, sum.Alerts, sum.FailedUsers)
			return err
		}
		ref, err := refDate()
		if err != nil {
			return err
		}
		res, err := session.app.Occurrences.EnsureForUser(cmd.Context(), flagUser, ref)
		fmt.Println(cli.RenderEnsure(res))
		return err
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending occurrences of the month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ref, err := refDate()
		if err != nil {
			return err
		}
		items, err := session.app.Occurrences.ListPendingWithNames(cmd.Context(), flagUser, ref)
		if err != nil {
			return err
		}
		fmt.Println(cli.RenderPending(core.MonthKey(ref), items))
		return nil
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <occurrence-id>",
	Short: "Mark a pending occurrence as paid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		occ, err := session.app.Occurrences.Confirm(cmd.Context(), flagUser, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("confirmada %s (%s, %s)\n", occ.ID, occ.DueDate, occ.Amount)
		return nil
	},
}

var omitCmd = &cobra.Command{
	Use:   "omit <occurrence-id>",
	Short: "Skip a pending occurrence this month",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		occ, err := session.app.Occurrences.Omit(cmd.Context(), flagUser, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("omitida %s (%s)\n", occ.ID, occ.DueDate)
		return nil
	},
}

var confirmAllCmd = &cobra.Command{
	Use:   "confirm-all [occurrence-id...]",
	Short: "Confirm the given occurrences, or every pending one of the month",
	RunE: func(cmd *cobra.Command, args []string) error {
		var res services.BulkResult
		if len(args) > 0 {
			res = session.app.Occurrences.ConfirmAll(cmd.Context(), flagUser, args)
		} else {
			ref, err := refDate()
			if err != nil {
				return err
			}
			if res, err = session.app.Occurrences.ConfirmAllPending(cmd.Context(), flagUser, ref); err != nil {
				return err
			}
		}
		fmt.Println(cli.RenderBulk(res))
		return res.Err()
	},
}

func init() {
	ensureCmd.Flags().BoolVar(&flagAllUsers, "all-users", false, "run for every known user, as the worker does")
	rootCmd.AddCommand(ensureCmd, pendingCmd, confirmCmd, omitCmd, confirmAllCmd)
}
