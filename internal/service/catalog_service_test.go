package service

import (
	"context"
	"testing"

	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/events"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

func TestAddStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	st, err := h.catalog.AddStatus(ctx, adminCaller, "  Em garantia ", "")
	if err != nil {
		t.Fatalf("AddStatus: %v", err)
	}
	if st.Name != "Em garantia" || st.Kind != domain.StatusKindAwaiting || st.ID == "" {
		t.Errorf("status = %+v", st)
	}
	if got := h.eventTypes(); len(got) != 1 || got[0] != events.EventCatalogChanged {
		t.Errorf("events = %v", got)
	}

	if _, err := h.catalog.AddStatus(ctx, adminCaller, "Resolvido", domain.StatusKindResolved); errCode(err) != apperrors.CodeIntegrity {
		t.Errorf("duplicate err = %v", err)
	}
	if _, err := h.catalog.AddStatus(ctx, adminCaller, "Novo", domain.StatusKindUnclaimed); errCode(err) != apperrors.CodeValidation {
		t.Errorf("second initial err = %v", err)
	}
	if _, err := h.catalog.AddStatus(ctx, adminCaller, "Estranho", "LIMBO"); errCode(err) != apperrors.CodeValidation {
		t.Errorf("unknown kind err = %v", err)
	}
	if _, err := h.catalog.AddStatus(ctx, anaCaller, "Outro", ""); errCode(err) != apperrors.CodeForbidden {
		t.Errorf("requester err = %v", err)
	}
}

func TestUpdateStatuses(t *testing.T) {
	ctx := context.Background()

	t.Run("rename and rekind", func(t *testing.T) {
		h := newHarness(t)
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: stWaiting, Name: "Aguardando usuário", Kind: domain.StatusKindAwaiting},
			{ID: stClosed, Name: "Encerrado", Kind: domain.StatusKindResolved},
		})
		if err != nil {
			t.Fatalf("UpdateStatuses: %v", err)
		}
		if got := h.store.statuses[stClosed]; got.Name != "Encerrado" || !got.AllowsReopen() {
			t.Errorf("closed = %+v", got)
		}
	})

	t.Run("move the initial role", func(t *testing.T) {
		h := newHarness(t)
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: stOpen, Name: "Aberto", Kind: domain.StatusKindAwaiting},
			{ID: stWaiting, Name: "Triagem", Kind: domain.StatusKindUnclaimed},
		})
		if err != nil {
			t.Fatalf("UpdateStatuses: %v", err)
		}
		initial, err := h.catalog.InitialStatus(ctx)
		if err != nil || initial.ID != stWaiting {
			t.Errorf("InitialStatus = %+v, %v", initial, err)
		}
	})

	t.Run("two initial", func(t *testing.T) {
		h := newHarness(t)
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: stWaiting, Name: "Aguardando peça", Kind: domain.StatusKindUnclaimed},
		})
		if errCode(err) != apperrors.CodeValidation {
			t.Fatalf("err = %v", err)
		}
		if h.store.statuses[stWaiting].Kind != domain.StatusKindAwaiting {
			t.Error("batch partially applied")
		}
	})

	t.Run("captured status loses role", func(t *testing.T) {
		h := newHarness(t)
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: stProgress, Name: "Em atendimento", Kind: domain.StatusKindAwaiting},
		})
		if errCode(err) != apperrors.CodeValidation {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("expired status becomes reopenable", func(t *testing.T) {
		h := newHarness(t)
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: stExpired, Name: "Expirado", Kind: domain.StatusKindResolved},
		})
		if errCode(err) != apperrors.CodeValidation {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		h := newHarness(t)
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: stClosed, Name: "Resolvido", Kind: domain.StatusKindClosed},
		})
		de := apperrors.ToDomainError(err)
		if de.Code != apperrors.CodeIntegrity || de.Details["value"] != "Resolvido" {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("swap names", func(t *testing.T) {
		h := newHarness(t)
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: stClosed, Name: "Expirado", Kind: domain.StatusKindClosed},
			{ID: stExpired, Name: "Fechado", Kind: domain.StatusKindClosed},
		})
		if err != nil {
			t.Fatalf("UpdateStatuses: %v", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		h := newHarness(t)
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: "st-404", Name: "Fantasma", Kind: domain.StatusKindClosed},
		})
		if errCode(err) != apperrors.CodeNotFound {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestDeleteStatusInUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.submit(t, anaCaller)

	for _, id := range []string{stOpen, stProgress, stExpired} {
		if err := h.catalog.DeleteStatus(ctx, adminCaller, id); errCode(err) != apperrors.CodeInUse {
			t.Errorf("DeleteStatus(%s) err = %v", id, err)
		}
	}
	if err := h.catalog.DeleteStatus(ctx, adminCaller, stWaiting); err != nil {
		t.Fatalf("DeleteStatus: %v", err)
	}
	if _, ok := h.store.statuses[stWaiting]; ok {
		t.Error("status still stored")
	}
	if err := h.catalog.DeleteStatus(ctx, adminCaller, stWaiting); errCode(err) != apperrors.CodeNotFound {
		t.Errorf("second delete err = %v", err)
	}
}

func TestInitialStatusMissing(t *testing.T) {
	h := newHarness(t)
	delete(h.store.statuses, stOpen)
	if _, err := h.catalog.InitialStatus(context.Background()); !apperrors.HasCode(err, apperrors.CodeNoInitialStatus) {
		t.Errorf("err = %v", err)
	}
}

func TestProblemTypes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pt, err := h.catalog.AddProblemType(ctx, adminCaller, "Sem sinal")
	if err != nil {
		t.Fatalf("AddProblemType: %v", err)
	}
	if _, err := h.catalog.AddProblemType(ctx, adminCaller, "Bateria"); errCode(err) != apperrors.CodeIntegrity {
		t.Errorf("duplicate err = %v", err)
	}
	if _, err := h.catalog.AddProblemType(ctx, adminCaller, " "); errCode(err) != apperrors.CodeValidation {
		t.Errorf("blank err = %v", err)
	}

	err = h.catalog.RenameProblemTypes(ctx, adminCaller, []domain.ProblemType{{ID: pt.ID, Name: "Tela quebrada"}})
	de := apperrors.ToDomainError(err)
	if de == nil || de.Code != apperrors.CodeIntegrity || de.Details["value"] != "Tela quebrada" {
		t.Errorf("rename collision err = %v", err)
	}
	if err := h.catalog.RenameProblemTypes(ctx, adminCaller, []domain.ProblemType{{ID: pt.ID, Name: "Sem rede"}}); err != nil {
		t.Fatalf("RenameProblemTypes: %v", err)
	}

	h.submit(t, anaCaller)
	if err := h.catalog.DeleteProblemType(ctx, adminCaller, ptScreen); errCode(err) != apperrors.CodeInUse {
		t.Errorf("in-use delete err = %v", err)
	}
	if err := h.catalog.DeleteProblemType(ctx, adminCaller, pt.ID); err != nil {
		t.Fatalf("DeleteProblemType: %v", err)
	}
	types, _ := h.catalog.ListProblemTypes(ctx)
	if len(types) != 2 {
		t.Errorf("types = %+v", types)
	}
}

func TestUpdateStatusesKeepsKindWhileInUse(t *testing.T) {
	ctx := context.Background()

	t.Run("resolved status made final", func(t *testing.T) {
		h := newHarness(t)
		h.resolved(t, anaCaller)
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: stResolved, Name: "Resolvido", Kind: domain.StatusKindClosed},
		})
		if errCode(err) != apperrors.CodeInUse {
			t.Fatalf("err = %v, want in use", err)
		}
		if h.store.statuses[stResolved].Kind != domain.StatusKindResolved {
			t.Error("kind changed")
		}
		h.checkInvariants(t)
	})

	t.Run("initial role moved onto an occupied status", func(t *testing.T) {
		h := newHarness(t)
		tk := h.submit(t, anaCaller)
		if _, err := h.tickets.Capture(ctx, adminCaller, tk.ID); err != nil {
			t.Fatalf("Capture: %v", err)
		}
		if _, err := h.tickets.Update(ctx, adminCaller, tk.ID, UpdateInput{StatusID: stWaiting, Note: "peça pedida"}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: stOpen, Name: "Aberto", Kind: domain.StatusKindAwaiting},
			{ID: stWaiting, Name: "Aguardando peça", Kind: domain.StatusKindUnclaimed},
		})
		if errCode(err) != apperrors.CodeInUse {
			t.Fatalf("err = %v, want in use", err)
		}
		initial, err := h.catalog.InitialStatus(ctx)
		if err != nil || initial.ID != stOpen {
			t.Errorf("InitialStatus = %+v, %v", initial, err)
		}
		h.checkInvariants(t)
		if _, err := h.tickets.Capture(ctx, adminTwo, tk.ID); errCode(err) != apperrors.CodeNotCapturable {
			t.Errorf("second capture err = %v", err)
		}
	})

	t.Run("rename only", func(t *testing.T) {
		h := newHarness(t)
		h.resolved(t, anaCaller)
		err := h.catalog.UpdateStatuses(ctx, adminCaller, []domain.Status{
			{ID: stResolved, Name: "Concluído", Kind: domain.StatusKindResolved},
		})
		if err != nil {
			t.Fatalf("UpdateStatuses: %v", err)
		}
		if h.store.statuses[stResolved].Name != "Concluído" {
			t.Errorf("status = %+v", h.store.statuses[stResolved])
		}
		h.checkInvariants(t)
	})
}
