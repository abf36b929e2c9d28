package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/municipal-it/helpdesk/internal/auth"
	"github.com/municipal-it/helpdesk/internal/config"
)

var seedConfig = config.SeedConfig{UsersSheet: "Cadastro", DevicesSheet: "equipamentos"}

func workbook(t *testing.T, sheets map[string][][]any) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	first := true
	for name, rows := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			row := row
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}
	return f
}

func newTestImporter(store *memStore) *Importer {
	return NewImporter(config.AuthConfig{DefaultPassword: "12345", BcryptCost: 4},
		memUsers{store}, memDevices{store}, nil)
}

func TestImportWorkbook(t *testing.T) {
	h := newHarness(t)
	f := workbook(t, map[string][][]any{
		"Cadastro": {
			{"Email", "Município", "Responsável", "Telefone", "Admin"},
			{"carla@leste.gov", "Leste", "Carla", "(11) 5555-0000", "não"},
			{"", "", "", "", ""},
			{"ANA@norte.gov", "Norte", "Ana", "", ""},
			{"ti@capital.gov", "Capital", "TI", "", "Sim"},
		},
		"equipamentos": {
			{"Município", "IMEI 1", "IMEI_2", "Marca", "Modelo", "Capacidade", "Número de Série",
				"Data Entrega", "Local de Uso", "Situação", "Patrimônio"},
			{"Leste", "356938035643809", "", "Samsung", "A14", "64GB", "R58T", "01/02/2024", "UBS Centro", "Em uso", "PAT-1"},
			{"Norte", "356938035643810"},
		},
	})

	report, err := newTestImporter(h.store).Import(context.Background(), f, seedConfig)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.UsersCreated != 2 || report.UsersSkipped != 1 || report.DevicesLoaded != 2 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("warnings = %v", report.Warnings)
	}

	carla, err := memUsers{h.store}.GetByEmail(context.Background(), "carla@leste.gov")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if carla.IsAdmin || !carla.MustResetPassword || carla.Municipality != "Leste" || carla.Phone != "(11) 5555-0000" {
		t.Errorf("carla = %+v", carla)
	}
	if err := auth.ComparePassword(carla.PasswordHash, "12345"); err != nil {
		t.Errorf("default password not set: %v", err)
	}
	ti, _ := memUsers{h.store}.GetByEmail(context.Background(), "ti@capital.gov")
	if ti == nil || !ti.IsAdmin {
		t.Errorf("admin column ignored: %+v", ti)
	}

	d := h.store.devices[0]
	if d.SerialNumber != "R58T" || d.DeliveredOn != "01/02/2024" || d.UsageSite != "UBS Centro" ||
		d.Condition != "Em uso" || d.AssetTag != "PAT-1" || d.Brand != "Samsung" {
		t.Errorf("device = %+v", d)
	}
	if h.store.devices[1].IMEI1 != "356938035643810" || h.store.devices[1].Model != "" {
		t.Errorf("short row = %+v", h.store.devices[1])
	}
}

func TestImportMissingPieces(t *testing.T) {
	h := newHarness(t)
	im := newTestImporter(h.store)

	f := workbook(t, map[string][][]any{
		"Cadastro": {{"Email", "Município", "Responsável"}, {"dora@oeste.gov", "Oeste", "Dora"}},
	})
	report, err := im.Import(context.Background(), f, seedConfig)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.UsersCreated != 1 || report.DevicesLoaded != 0 || len(report.Warnings) != 1 {
		t.Errorf("report = %+v", report)
	}

	cfg := seedConfig
	cfg.WorkbookPath = filepath.Join(t.TempDir(), "absent.xlsx")
	report, err = im.ImportWorkbook(context.Background(), cfg)
	if err != nil {
		t.Fatalf("ImportWorkbook: %v", err)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("warnings = %v", report.Warnings)
	}
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		" Número de Série ": "numerodeserie",
		"Situação":          "situacao",
		"IMEI_2":            "imei2",
		"Patrimônio":        "patrimonio",
	}
	for in, want := range cases {
		if got := normalizeHeader(in); got != want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}
