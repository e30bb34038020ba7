package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IvaDonGon/TusGastos/internal/amqp"
	"github.com/IvaDonGon/TusGastos/internal/cli"
	apphttp "github.com/IvaDonGon/TusGastos/internal/http"
	"github.com/IvaDonGon/TusGastos/internal/sheets"
	gsheet "github.com/IvaDonGon/TusGastos/internal/sheets/google"
	memsheet "github.com/IvaDonGon/TusGastos/internal/sheets/memory"
)

var (
	flagDryRun   bool
	flagWatchAll bool
	flagTokenTTL time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the month's report to Google Sheets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ref, err := refDate()
		if err != nil {
			return err
		}

		var writer sheets.ReportWriter
		mem := memsheet.New()
		switch {
		case flagDryRun:
			writer = mem
		case session.cfg.GoogleSpreadsheetID == "":
			return errors.New("GOOGLE_SPREADSHEET_ID is not set (use --dry-run to print the report)")
		default:
			client, err := gsheet.New(cmd.Context(), session.cfg.GoogleSpreadsheetID)
			if err != nil {
				return err
			}
			writer = client
		}

		exporter := sheets.NewExporter(session.app.Store, session.app.Budget, writer, session.cfg.GoogleSheetPrefix)
		res, err := exporter.Export(cmd.Context(), flagUser, ref)
		if err != nil {
			return err
		}
		if rows, ok := mem.Sheet(res.SheetName); ok {
			for _, row := range rows {
				fmt.Println(row...)
			}
		}
		fmt.Printf("hoja %q: %d filas\n", res.SheetName, res.Rows)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:         "watch",
	Short:       "Print budget and occurrence events as they are published",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"standalone": "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := session.cfg
		if cfg.AMQPURL == "" {
			return errors.New("AMQP_URL is not set")
		}
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer client.Close()

		fmt.Println(cli.RenderTitle("Escuchando " + cfg.AMQPExchange))
		err = client.Consume(cmd.Context(), func(_ context.Context, ev amqp.Event) error {
			if flagWatchAll || ev.UserID() == flagUser {
				fmt.Println(cli.RenderEvent(ev))
			}
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var tokenCmd = &cobra.Command{
	Use:         "token",
	Short:       "Issue an API bearer token for --user",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"standalone": "true"},
	RunE: func(*cobra.Command, []string) error {
		if session.cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		token, err := apphttp.IssueToken([]byte(session.cfg.JWTSecret), flagUser, flagTokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "print the rows instead of writing to Google Sheets")
	watchCmd.Flags().BoolVar(&flagWatchAll, "all", false, "print events of every user")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
	rootCmd.AddCommand(exportCmd, watchCmd, tokenCmd)
}
