package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestStatus string

const (
	StatusNew        RequestStatus = "new"
	StatusInProgress RequestStatus = "in_progress"
	StatusRepaired   RequestStatus = "repaired"
	StatusScrapped   RequestStatus = "scrapped"
)

func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusRepaired, StatusScrapped:
		return true
	}
	return false
}

// IsTerminal reports whether the status counts as completed work.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusRepaired || s == StatusScrapped
}

type TechnicianTeam string

const (
	TeamITSupport  TechnicianTeam = "it_support"
	TeamMechanical TechnicianTeam = "mechanical"
	TeamElectrical TechnicianTeam = "electrical"
)

func (t TechnicianTeam) IsValid() bool {
	switch t {
	case TeamITSupport, TeamMechanical, TeamElectrical:
		return true
	}
	return false
}

type EquipmentType string

const (
	EquipmentCNC        EquipmentType = "cnc"
	EquipmentLathe      EquipmentType = "lathe_machine"
	EquipmentMilling    EquipmentType = "milling_machine"
	EquipmentGenerator  EquipmentType = "generator"
	EquipmentCompressor EquipmentType = "compressor"
	EquipmentPrinter    EquipmentType = "printer"
	EquipmentLaptop     EquipmentType = "laptop"
	EquipmentServer     EquipmentType = "server"
	EquipmentUPS        EquipmentType = "ups"
)

func (e EquipmentType) IsValid() bool {
	for _, opt := range EquipmentOptions {
		if opt.Value == string(e) {
			return true
		}
	}
	return false
}

// Option is a value/label pair used for validation and display.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// EquipmentOptions is the canonical equipment enumeration. The order here is
// the tie-break order for the equipment breakdown, keep it stable.
var EquipmentOptions = []Option{
	{Value: "cnc", Label: "CNC"},
	{Value: "lathe_machine", Label: "Lathe Machine"},
	{Value: "milling_machine", Label: "Milling Machine"},
	{Value: "generator", Label: "Generator"},
	{Value: "compressor", Label: "Compressor"},
	{Value: "printer", Label: "Printer"},
	{Value: "laptop", Label: "Laptop"},
	{Value: "server", Label: "Server"},
	{Value: "ups", Label: "UPS"},
}

var TeamOptions = []Option{
	{Value: "it_support", Label: "IT Support"},
	{Value: "mechanical", Label: "Mechanical"},
	{Value: "electrical", Label: "Electrical"},
}

var StatusOptions = []Option{
	{Value: "new", Label: "New"},
	{Value: "in_progress", Label: "In Progress"},
	{Value: "repaired", Label: "Repaired"},
	{Value: "scrapped", Label: "Scrapped"},
}

func labelFor(options []Option, value string) string {
	for _, opt := range options {
		if opt.Value == value {
			return opt.Label
		}
	}
	// unknown values fall back to the raw string, lenient on purpose
	return value
}

func EquipmentLabel(e EquipmentType) string { return labelFor(EquipmentOptions, string(e)) }
func TeamLabel(t TechnicianTeam) string     { return labelFor(TeamOptions, string(t)) }
func StatusLabel(s RequestStatus) string    { return labelFor(StatusOptions, string(s)) }

// MaintenanceRequest is a single equipment maintenance ticket. The requester
// fields are set once at creation; the assignee triple is set atomically when a
// technician accepts; team and time_duration only mean anything after that.
type MaintenanceRequest struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequesterID             string             `bson:"requester_id" json:"requester_id"`
	EquipmentName           EquipmentType      `bson:"equipment_name" json:"equipment_name"`
	SerialNumber            string             `bson:"serial_number" json:"serial_number"`
	ProblemDescription      string             `bson:"problem_description" json:"problem_description"`
	PurchaseDate            *string            `bson:"purchase_date,omitempty" json:"purchase_date,omitempty"`
	WarrantyDuration        *string            `bson:"warranty_duration,omitempty" json:"warranty_duration,omitempty"`
	Location                string             `bson:"location" json:"location"`
	AssignedTechnicianID    *string            `bson:"assigned_technician_id,omitempty" json:"assigned_technician_id,omitempty"`
	AssignedTechnicianName  *string            `bson:"assigned_technician_name,omitempty" json:"assigned_technician_name,omitempty"`
	AssignedTechnicianEmail *string            `bson:"assigned_technician_email,omitempty" json:"assigned_technician_email,omitempty"`
	TechnicianTeam          *TechnicianTeam    `bson:"technician_team,omitempty" json:"technician_team,omitempty"`
	Status                  RequestStatus      `bson:"status" json:"status"`
	TimeDuration            *string            `bson:"time_duration,omitempty" json:"time_duration,omitempty"`
	CreatedAt               time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt               time.Time          `bson:"updated_at" json:"updated_at"`
}

// RequestDraft is the creation payload.
type RequestDraft struct {
	EquipmentName      EquipmentType `json:"equipment_name" validate:"required"`
	SerialNumber       string        `json:"serial_number" validate:"required"`
	ProblemDescription string        `json:"problem_description" validate:"required"`
	Location           string        `json:"location" validate:"required"`
	PurchaseDate       *string       `json:"purchase_date,omitempty"`
	WarrantyDuration   *string       `json:"warranty_duration,omitempty"`
}

func (d *RequestDraft) Validate() error {
	if d.EquipmentName == "" || d.SerialNumber == "" || d.ProblemDescription == "" || d.Location == "" {
		return fmt.Errorf("%w: missing required request fields", ErrValidation)
	}
	if !d.EquipmentName.IsValid() {
		return fmt.Errorf("%w: unknown equipment type %q", ErrValidation, d.EquipmentName)
	}
	return nil
}

// RequestPatch is the sparse update payload: only non-nil fields are written.
type RequestPatch struct {
	Status         *RequestStatus  `json:"status,omitempty"`
	TechnicianTeam *TechnicianTeam `json:"technician_team,omitempty"`
	TimeDuration   *string         `json:"time_duration,omitempty"`
}

func (p *RequestPatch) IsEmpty() bool {
	return p.Status == nil && p.TechnicianTeam == nil && p.TimeDuration == nil
}

func (p *RequestPatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: empty update", ErrValidation)
	}
	if p.Status != nil && !p.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, *p.Status)
	}
	if p.TechnicianTeam != nil && !p.TechnicianTeam.IsValid() {
		return fmt.Errorf("%w: unknown team %q", ErrValidation, *p.TechnicianTeam)
	}
	return nil
}
