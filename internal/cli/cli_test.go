package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/IvaDonGon/TusGastos/internal/amqp"
	"github.com/IvaDonGon/TusGastos/internal/core"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/memory"
	"github.com/IvaDonGon/TusGastos/internal/services"
)

const memoryConfig = `
[storage]
backend = "memory"

[auth]
skip = true
mock_user_id = "tester"

[scheduler]
timezone = "UTC"
interval = "30m"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tusgastos.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATA_BACKEND", "AUTH_SKIP", "AUTH_MOCK_USER_ID", "JWT_SECRET", "TIMEZONE", "SCHEDULER_INTERVAL", "AMQP_URL", "CONFIG_FILE"} {
		t.Setenv(k, "")
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	clearEnv(t)

	t.Run("valid file", func(t *testing.T) {
		cfg, err := LoadAndValidateConfig(writeConfig(t, memoryConfig))
		if err != nil {
			t.Fatalf("LoadAndValidateConfig: %v", err)
		}
		if cfg.DataBackend != "memory" || !cfg.AuthSkip || cfg.AuthMockUserID != "tester" || cfg.SchedulerInterval != 30*time.Minute {
			t.Fatalf("unexpected config: %+v", cfg)
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("AUTH_MOCK_USER_ID", "from-env")
		cfg, err := LoadAndValidateConfig(writeConfig(t, memoryConfig))
		if err != nil {
			t.Fatalf("LoadAndValidateConfig: %v", err)
		}
		if cfg.AuthMockUserID != "from-env" {
			t.Fatalf("AuthMockUserID = %q", cfg.AuthMockUserID)
		}
	})

	t.Run("invalid values are reported", func(t *testing.T) {
		_, err := LoadAndValidateConfig(writeConfig(t, memoryConfig+"\n[log]\nlevel = \"loud\"\n"))
		if err == nil || !strings.Contains(err.Error(), "invalid log level") {
			t.Fatalf("expected log level error, got %v", err)
		}
	})

	t.Run("broken toml", func(t *testing.T) {
		if _, err := LoadAndValidateConfig(writeConfig(t, "[storage\n")); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestOpenBackendAndApp(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadAndValidateConfig(writeConfig(t, memoryConfig))
	if err != nil {
		t.Fatalf("LoadAndValidateConfig: %v", err)
	}
	cfg.DataDirectory = t.TempDir()
	logger := applog.Discard()

	store, err := OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	notifier, closeFn, err := OpenNotifier(cfg, logger)
	if err != nil {
		t.Fatalf("OpenNotifier: %v", err)
	}
	defer closeFn()
	if _, ok := notifier.(services.NopNotifier); !ok {
		t.Fatalf("expected NopNotifier without AMQP_URL, got %T", notifier)
	}

	app := NewApp(cfg, store, notifier, logger)
	ctx := context.Background()
	def, err := app.Definitions.Create(ctx, core.RecurringDefinition{UserID: "tester", Name: "Arriendo", Amount: 450000, DayOfMonth: 1, Active: true})
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}
	res, err := app.Occurrences.EnsureForUser(ctx, "tester", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("EnsureForUser: %v", err)
	}
	if len(res.Created) != 1 || res.Created[0].DefinitionID != def.ID || res.Created[0].DueDate != "2025-03-01" {
		t.Fatalf("unexpected ensure result: %+v", res)
	}

	srv := app.HTTPServer(":0", logger)
	if srv.Addr != ":0" {
		t.Fatalf("Addr = %q", srv.Addr)
	}
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if app.Scheduler() == nil {
		t.Fatal("Scheduler returned nil")
	}
}

func TestRenderAlerts(t *testing.T) {
	alerts := core.BudgetAlerts{
		Over: []core.BudgetAlertState{{CategoryName: "Casa", Spent: 50000, Limit: 50000, Status: core.BudgetOver}},
		Near: []core.BudgetAlertState{{CategoryName: "Comida", Spent: 85000, Limit: 100000, Status: core.BudgetNear}},
	}
	out := RenderAlerts("2025-02", alerts)
	for _, want := range []string{"Alertas 2025-02", "excedido", "Casa", "cerca", "Comida", "$85.000", "$100.000", "85%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Casa") > strings.Index(out, "Comida") {
		t.Errorf("over categories should come first:\n%s", out)
	}

	empty := RenderAlerts("2025-02", core.BudgetAlerts{})
	if !strings.Contains(empty, "Sin alertas") {
		t.Errorf("unexpected empty output: %s", empty)
	}
}

func TestRenderPendingAndBulk(t *testing.T) {
	items := []services.PendingItem{
		{RecurringOccurrence: core.RecurringOccurrence{ID: "o1", DueDate: "2025-02-05", Amount: 30000}, Name: "Luz"},
		{RecurringOccurrence: core.RecurringOccurrence{ID: "o2", DueDate: "2025-02-28", Amount: 15000}, Name: "Netflix"},
	}
	out := RenderPending("2025-02", items)
	for _, want := range []string{"Luz", "Netflix", "2025-02-28", "2 pendientes, total $45.000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(RenderPending("2025-02", nil), "No hay pagos pendientes") {
		t.Error("empty pending list should say so")
	}

	bulk := RenderBulk(services.BulkResult{
		Confirmed: []string{"o1"},
		Failed:    []services.ItemFailure{{ID: "o9", Err: errors.New("not found")}},
	})
	if !strings.Contains(bulk, "confirmadas: 1") || !strings.Contains(bulk, "o9: not found") {
		t.Errorf("unexpected bulk output: %s", bulk)
	}
}

func TestRenderDashboardAndEvent(t *testing.T) {
	sum := core.DashboardSummary{
		Date:          "2025-02-10",
		MonthlyTotal:  4500,
		PreviousTotal: 9000,
		Delta:         core.MonthDelta{Amount: -4500, Percent: decimal.NewFromInt(50)},
		Weekly:        []core.DayTotal{{Date: "2025-02-10", Label: "Lun", Total: 4500}},
		ByCategory:    []core.CategoryAmount{{CategoryID: "c1", Name: "Comida", Amount: 4500}},
	}
	out := RenderDashboard(sum)
	for _, want := range []string{"Resumen 2025-02-10", "$4.500", "$9.000", "▼ 50%", "Lun", "Comida"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	ev := amqp.Event{
		RoutingKey:  amqp.RoutingBudgetAlert,
		BudgetAlert: &amqp.BudgetAlertMessage{UserID: "u1", Month: "2025-02", Over: []core.BudgetAlertState{{}}},
	}
	line := RenderEvent(ev)
	if !strings.Contains(line, "budget.alert") || !strings.Contains(line, "over=1 near=0") {
		t.Errorf("unexpected event line: %s", line)
	}
}
