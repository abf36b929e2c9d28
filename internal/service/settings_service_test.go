package service

import (
	"context"
	"testing"

	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/events"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

func TestParseSettings(t *testing.T) {
	got, err := parseSettings(map[string]string{})
	if err != nil {
		t.Fatalf("parseSettings(empty): %v", err)
	}
	if got != domain.DefaultSettings() {
		t.Errorf("defaults = %+v", got)
	}

	got, err = parseSettings(map[string]string{
		domain.SettingRedThresholdDays: " 20 ",
		domain.SettingReopenWindowDays: "x",
		domain.SettingExpiredStatusID:  "st-9",
	})
	if !apperrors.HasCode(err, apperrors.CodeMalformedSetting) {
		t.Fatalf("err = %v", err)
	}
	if got.RedThresholdDays != 20 || got.ReopenWindowDays != domain.DefaultReopenWindowDays {
		t.Errorf("settings = %+v", got)
	}
	if got.ExpiredStatusID == nil || *got.ExpiredStatusID != "st-9" || got.CapturedStatusID != nil {
		t.Errorf("status ids = %v %v", got.CapturedStatusID, got.ExpiredStatusID)
	}
}

func TestSaveSettings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	saved, err := h.settings.Save(ctx, adminCaller, SettingsInput{
		RedThresholdDays:    "8",
		YellowThresholdDays: "4",
		ReopenWindowDays:    "0",
		CapturedStatusID:    stProgress,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ReopenWindowDays != 0 || saved.ExpiredStatusID != nil {
		t.Errorf("saved = %+v", saved)
	}

	loaded, err := h.settings.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.RedThresholdDays != 8 || loaded.YellowThresholdDays != 4 || loaded.ExpiredStatusID != nil {
		t.Errorf("loaded = %+v", loaded)
	}
	if _, ok := h.store.settings[domain.SettingExpiredStatusID]; ok {
		t.Error("empty expired status was stored instead of unset")
	}
	if got := h.eventTypes(); len(got) != 1 || got[0] != events.EventSettingsChanged {
		t.Errorf("events = %v", got)
	}
}

func TestSaveSettingsRejections(t *testing.T) {
	valid := SettingsInput{RedThresholdDays: "10", YellowThresholdDays: "5", ReopenWindowDays: "3"}
	cases := map[string]func(in *SettingsInput){
		"non numeric":           func(in *SettingsInput) { in.RedThresholdDays = "dez" },
		"negative":              func(in *SettingsInput) { in.ReopenWindowDays = "-1" },
		"red equals yellow":     func(in *SettingsInput) { in.RedThresholdDays = "5" },
		"red below yellow":      func(in *SettingsInput) { in.RedThresholdDays = "2" },
		"unknown status":        func(in *SettingsInput) { in.CapturedStatusID = "st-404" },
		"captured not progress": func(in *SettingsInput) { in.CapturedStatusID = stResolved },
		"expired reopenable":    func(in *SettingsInput) { in.ExpiredStatusID = stResolved },
		"expired not final":     func(in *SettingsInput) { in.ExpiredStatusID = stWaiting },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			in := valid
			mutate(&in)
			if _, err := h.settings.Save(context.Background(), adminCaller, in); errCode(err) != apperrors.CodeValidation {
				t.Fatalf("err = %v, want validation", err)
			}
			if h.store.settings[domain.SettingCapturedStatusID] != stProgress || len(h.store.settings) != 2 {
				t.Errorf("settings changed: %v", h.store.settings)
			}
		})
	}

	h := newHarness(t)
	if _, err := h.settings.Save(context.Background(), anaCaller, valid); errCode(err) != apperrors.CodeForbidden {
		t.Errorf("requester Save err = %v", err)
	}
}

func TestGetSettingsListsEligibleStatuses(t *testing.T) {
	h := newHarness(t)
	h.store.settings[domain.SettingRedThresholdDays] = "muitos"

	view, err := h.settings.Get(context.Background(), adminCaller)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Settings.RedThresholdDays != domain.DefaultRedThresholdDays {
		t.Errorf("RedThresholdDays = %d", view.Settings.RedThresholdDays)
	}
	if len(view.CapturedOptions) != 1 || view.CapturedOptions[0].ID != stProgress {
		t.Errorf("CapturedOptions = %+v", view.CapturedOptions)
	}
	if len(view.ExpiredOptions) != 2 {
		t.Errorf("ExpiredOptions = %+v", view.ExpiredOptions)
	}
	for _, st := range view.ExpiredOptions {
		if st.AllowsReopen() || !st.IsFinal() {
			t.Errorf("ineligible expired option %s", st.Name)
		}
	}
}
