package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IvaDonGon/TusGastos/internal/cli"
	"github.com/IvaDonGon/TusGastos/internal/core"
)

var flagPublish bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show categories near or over their monthly limit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ref, err := refDate()
		if err != nil {
			return err
		}
		var alerts core.BudgetAlerts
		if flagPublish {
			alerts, err = session.app.Budget.NotifyAlerts(cmd.Context(), flagUser, ref)
		} else {
			alerts = session.app.Budget.Evaluate(cmd.Context(), flagUser, ref)
		}
		fmt.Println(cli.RenderAlerts(core.MonthKey(ref), alerts))
		return err
	},
}

var limitCmd = &cobra.Command{
	Use:   "limit",
	Short: "Manage monthly category limits",
}

var limitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories and their limits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		views, err := session.app.Budget.ListLimits(cmd.Context(), flagUser)
		if err != nil {
			return err
		}
		fmt.Println(cli.RenderLimits(views))
		return nil
	},
}

var limitSetCmd = &cobra.Command{
	Use:     "set <category-id> <amount>",
	Short:   "Set a category's monthly limit",
	Example: "  tusgastosctl limit set 3f2a... '$150.000'",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := core.ParseAmount(args[1])
		if err != nil {
			return err
		}
		limit := int64(amount)
		if err := session.app.Budget.SetLimit(cmd.Context(), flagUser, args[0], &limit); err != nil {
			return err
		}
		fmt.Printf("límite de %s: %s\n", args[0], amount)
		return nil
	},
}

var limitClearCmd = &cobra.Command{
	Use:   "clear <category-id>",
	Short: "Remove a category's monthly limit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.app.Budget.SetLimit(cmd.Context(), flagUser, args[0], nil); err != nil {
			return err
		}
		fmt.Printf("límite de %s eliminado\n", args[0])
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the month summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ref, err := refDate()
		if err != nil {
			return err
		}
		sum, err := session.app.Dashboard.Summary(cmd.Context(), flagUser, ref)
		if err != nil {
			return err
		}
		fmt.Println(cli.RenderDashboard(sum))
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&flagPublish, "publish", false, "also publish the alerts over AMQP")
	limitCmd.AddCommand(limitListCmd, limitSetCmd, limitClearCmd)
	rootCmd.AddCommand(alertsCmd, limitCmd, dashboardCmd)
}
