package models

import (
	"errors"
	"testing"
)

func TestLabelLookup(t *testing.T) {
	if got := EquipmentLabel(EquipmentLathe); got != "Lathe Machine" {
		t.Errorf("EquipmentLabel = %q, want Lathe Machine", got)
	}
	if got := TeamLabel(TeamITSupport); got != "IT Support" {
		t.Errorf("TeamLabel = %q, want IT Support", got)
	}
	if got := StatusLabel(StatusInProgress); got != "In Progress" {
		t.Errorf("StatusLabel = %q, want In Progress", got)
	}
}

func TestLabelFallback(t *testing.T) {
	// unknown values fall back to the raw string rather than erroring
	if got := EquipmentLabel(EquipmentType("hovercraft")); got != "hovercraft" {
		t.Errorf("EquipmentLabel fallback = %q, want hovercraft", got)
	}
	if got := TeamLabel(TechnicianTeam("plumbing")); got != "plumbing" {
		t.Errorf("TeamLabel fallback = %q, want plumbing", got)
	}
}

func TestDraftValidate(t *testing.T) {
	draft := RequestDraft{
		EquipmentName:      EquipmentLaptop,
		SerialNumber:       "SN-1",
		ProblemDescription: "won't boot",
		Location:           "Bldg A",
	}
	if err := draft.Validate(); err != nil {
		t.Errorf("valid draft: %v", err)
	}

	missing := draft
	missing.Location = ""
	if err := missing.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("missing location: err = %v, want ErrValidation", err)
	}

	unknown := draft
	unknown.EquipmentName = "typewriter"
	if err := unknown.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown equipment: err = %v, want ErrValidation", err)
	}
}

func TestPatchValidate(t *testing.T) {
	var empty RequestPatch
	if err := empty.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("empty patch: err = %v, want ErrValidation", err)
	}

	bad := RequestStatus("exploded")
	if err := (&RequestPatch{Status: &bad}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("bad status: err = %v, want ErrValidation", err)
	}

	team := TeamMechanical
	if err := (&RequestPatch{TechnicianTeam: &team}).Validate(); err != nil {
		t.Errorf("valid patch: %v", err)
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range []RequestStatus{StatusNew, StatusInProgress, StatusRepaired, StatusScrapped} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if RequestStatus("pending").IsValid() {
		t.Error("pending should not be a valid status")
	}
	if StatusNew.IsTerminal() || StatusInProgress.IsTerminal() {
		t.Error("new/in_progress must not be terminal")
	}
	if !StatusRepaired.IsTerminal() || !StatusScrapped.IsTerminal() {
		t.Error("repaired/scrapped must be terminal")
	}
}
