package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/auth"
	"github.com/municipal-it/helpdesk/internal/config"
	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/repository"
)

// Importer loads accounts and the device inventory from the support workbook.
type Importer struct {
	users           repository.UserRepository
	devices         repository.DeviceRepository
	defaultPassword string
	bcryptCost      int
	logger          *zap.Logger
}

// ImportReport summarizes one workbook import.
type ImportReport struct {
	UsersCreated  int
	UsersSkipped  int
	DevicesLoaded int64
	Warnings      []string
}

// NewImporter builds the importer.
func NewImporter(cfg config.AuthConfig, users repository.UserRepository, devices repository.DeviceRepository, logger *zap.Logger) *Importer {
	return &Importer{
		users:           users,
		devices:         devices,
		defaultPassword: cfg.DefaultPassword,
		bcryptCost:      cfg.BcryptCost,
		logger:          orNop(logger),
	}
}

// ImportWorkbook reads the workbook at cfg.WorkbookPath. A missing workbook or
// sheet is reported as a warning, never as an error.
func (im *Importer) ImportWorkbook(ctx context.Context, cfg config.SeedConfig) (*ImportReport, error) {
	if _, err := os.Stat(cfg.WorkbookPath); errors.Is(err, fs.ErrNotExist) {
		report := &ImportReport{}
		report.warn(im.logger, fmt.Sprintf("workbook %s not found, skipping users and devices", cfg.WorkbookPath))
		return report, nil
	}
	f, err := excelize.OpenFile(cfg.WorkbookPath)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f, cfg)
}

// Import loads both sheets from an open workbook. Existing accounts are kept;
// the device inventory is replaced wholesale.
func (im *Importer) Import(ctx context.Context, f *excelize.File, cfg config.SeedConfig) (*ImportReport, error) {
	report := &ImportReport{}

	users, err := readUsers(f, cfg.UsersSheet)
	if err != nil {
		report.warn(im.logger, fmt.Sprintf("users not imported: %v", err))
	} else if err := im.importUsers(ctx, users, report); err != nil {
		return report, err
	}

	devices, err := readDevices(f, cfg.DevicesSheet)
	if err != nil {
		report.warn(im.logger, fmt.Sprintf("devices not imported: %v", err))
		return report, nil
	}
	n, err := im.devices.ReplaceAll(ctx, devices)
	if err != nil {
		return report, fmt.Errorf("replace devices: %w", err)
	}
	report.DevicesLoaded = n
	im.logger.Info("devices imported", zap.Int64("count", n))
	return report, nil
}

func (im *Importer) importUsers(ctx context.Context, users []domain.User, report *ImportReport) error {
	if len(users) == 0 {
		return nil
	}
	hash, err := auth.HashPassword(im.defaultPassword, im.bcryptCost)
	if err != nil {
		return err
	}
	for i := range users {
		users[i].PasswordHash = hash
		users[i].MustResetPassword = true
		created, err := im.users.CreateIfAbsent(ctx, &users[i])
		if err != nil {
			return fmt.Errorf("import user %s: %w", users[i].Email, err)
		}
		if created {
			report.UsersCreated++
		} else {
			report.UsersSkipped++
		}
	}
	im.logger.Info("users imported", zap.Int("created", report.UsersCreated), zap.Int("skipped", report.UsersSkipped))
	return nil
}

func (r *ImportReport) warn(logger *zap.Logger, msg string) {
	logger.Warn(msg)
	r.Warnings = append(r.Warnings, msg)
}

var headerFolds = strings.NewReplacer(
	" ", "", "_", "",
	"á", "a", "à", "a", "ã", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u",
	"ç", "c",
)

func normalizeHeader(h string) string {
	return headerFolds.Replace(strings.ToLower(strings.TrimSpace(h)))
}

// sheetRecords returns the data rows of a sheet keyed by normalized header.
func sheetRecords(f *excelize.File, sheet string) ([]map[string]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = normalizeHeader(h)
	}
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		empty := true
		for i, key := range header {
			if i < len(row) {
				rec[key] = strings.TrimSpace(row[i])
				if rec[key] != "" {
					empty = false
				}
			}
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return records, nil
}

func readUsers(f *excelize.File, sheet string) ([]domain.User, error) {
	records, err := sheetRecords(f, sheet)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(records))
	for _, rec := range records {
		if rec["email"] == "" {
			continue
		}
		users = append(users, domain.User{
			Email:        strings.ToLower(rec["email"]),
			Municipality: rec["municipio"],
			DisplayName:  rec["responsavel"],
			Phone:        rec["telefone"],
			IsAdmin:      strings.EqualFold(rec["admin"], "sim"),
		})
	}
	return users, nil
}

func readDevices(f *excelize.File, sheet string) ([]domain.Device, error) {
	records, err := sheetRecords(f, sheet)
	if err != nil {
		return nil, err
	}
	devices := make([]domain.Device, 0, len(records))
	for _, rec := range records {
		if rec["municipio"] == "" {
			continue
		}
		devices = append(devices, domain.Device{
			Municipality: rec["municipio"],
			IMEI1:        rec["imei1"],
			IMEI2:        rec["imei2"],
			Brand:        rec["marca"],
			Model:        rec["modelo"],
			Capacity:     rec["capacidade"],
			SerialNumber: rec["numerodeserie"],
			DeliveredOn:  rec["dataentrega"],
			UsageSite:    rec["localdeuso"],
			Condition:    rec["situacao"],
			AssetTag:     rec["patrimonio"],
		})
	}
	return devices, nil
}
