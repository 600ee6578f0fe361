package services

import (
	"math"
	"sort"

	"maintenance-app/internal/models"
)

// StatsService derives reporting statistics from a request collection. All
// methods are pure functions of their input and tolerate empty collections.
type StatsService struct{}

func NewStatsService() *StatsService {
	return &StatsService{}
}

type EquipmentCount struct {
	Value models.EquipmentType `json:"value"`
	Label string               `json:"label"`
	Count int                  `json:"count"`
}

type TeamCount struct {
	Value models.TechnicianTeam `json:"value"`
	Label string                `json:"label"`
	Count int                   `json:"count"`
}

type OverviewStats struct {
	Total           int              `json:"total"`
	Pending         int              `json:"pending"`
	InProgress      int              `json:"in_progress"`
	Completed       int              `json:"completed"`
	CompletionRate  int              `json:"completion_rate"`
	TechnicianCount int              `json:"technician_count"`
	ByEquipment     []EquipmentCount `json:"by_equipment"`
	ByTeam          []TeamCount      `json:"by_team"`
}

// Overview computes the manager dashboard numbers. The equipment breakdown
// omits zero-count types and sorts descending by count, ties keeping the
// canonical enumeration order; the team breakdown always lists every team so
// an idle team is still visible.
func (s *StatsService) Overview(requests []models.MaintenanceRequest) OverviewStats {
	stats := OverviewStats{Total: len(requests)}

	technicians := make(map[string]struct{})
	for _, r := range requests {
		switch {
		case r.Status == models.StatusNew:
			stats.Pending++
		case r.Status == models.StatusInProgress:
			stats.InProgress++
		case r.Status.IsTerminal():
			stats.Completed++
		}
		if r.AssignedTechnicianID != nil {
			technicians[*r.AssignedTechnicianID] = struct{}{}
		}
	}
	stats.CompletionRate = percent(stats.Completed, stats.Total)
	stats.TechnicianCount = len(technicians)

	stats.ByEquipment = make([]EquipmentCount, 0)
	for _, opt := range models.EquipmentOptions {
		count := 0
		for _, r := range requests {
			if string(r.EquipmentName) == opt.Value {
				count++
			}
		}
		if count > 0 {
			stats.ByEquipment = append(stats.ByEquipment, EquipmentCount{
				Value: models.EquipmentType(opt.Value),
				Label: opt.Label,
				Count: count,
			})
		}
	}
	sort.SliceStable(stats.ByEquipment, func(i, j int) bool {
		return stats.ByEquipment[i].Count > stats.ByEquipment[j].Count
	})

	stats.ByTeam = make([]TeamCount, 0, len(models.TeamOptions))
	for _, opt := range models.TeamOptions {
		count := 0
		for _, r := range requests {
			if r.TechnicianTeam != nil && string(*r.TechnicianTeam) == opt.Value {
				count++
			}
		}
		stats.ByTeam = append(stats.ByTeam, TeamCount{
			Value: models.TechnicianTeam(opt.Value),
			Label: opt.Label,
			Count: count,
		})
	}

	return stats
}

type TechnicianStats struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Email          string                  `json:"email"`
	Assigned       int                     `json:"assigned"`
	InProgress     int                     `json:"in_progress"`
	Completed      int                     `json:"completed"`
	CompletionRate int                     `json:"completion_rate"`
	Teams          []models.TechnicianTeam `json:"teams"`
}

// TechnicianRollup aggregates per-technician workload over every request with
// an assignee, sorted by assigned count descending.
func (s *StatsService) TechnicianRollup(requests []models.MaintenanceRequest) []TechnicianStats {
	byID := make(map[string]*TechnicianStats)
	teams := make(map[string]map[models.TechnicianTeam]struct{})
	order := make([]string, 0)

	for _, r := range requests {
		if r.AssignedTechnicianID == nil {
			continue
		}
		id := *r.AssignedTechnicianID
		entry, ok := byID[id]
		if !ok {
			entry = &TechnicianStats{ID: id, Name: "Unknown"}
			if r.AssignedTechnicianName != nil {
				entry.Name = *r.AssignedTechnicianName
			}
			if r.AssignedTechnicianEmail != nil {
				entry.Email = *r.AssignedTechnicianEmail
			}
			byID[id] = entry
			teams[id] = make(map[models.TechnicianTeam]struct{})
			order = append(order, id)
		}

		entry.Assigned++
		if r.Status == models.StatusInProgress {
			entry.InProgress++
		}
		if r.Status.IsTerminal() {
			entry.Completed++
		}
		if r.TechnicianTeam != nil {
			teams[id][*r.TechnicianTeam] = struct{}{}
		}
	}

	rollup := make([]TechnicianStats, 0, len(order))
	for _, id := range order {
		entry := byID[id]
		entry.CompletionRate = percent(entry.Completed, entry.Assigned)
		// canonical team order keeps the output deterministic
		entry.Teams = make([]models.TechnicianTeam, 0, len(teams[id]))
		for _, opt := range models.TeamOptions {
			if _, ok := teams[id][models.TechnicianTeam(opt.Value)]; ok {
				entry.Teams = append(entry.Teams, models.TechnicianTeam(opt.Value))
			}
		}
		rollup = append(rollup, *entry)
	}

	sort.SliceStable(rollup, func(i, j int) bool {
		return rollup[i].Assigned > rollup[j].Assigned
	})
	return rollup
}

type RequesterStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Solved     int `json:"solved"`
}

// RequesterOverview computes the requester dashboard over the caller's own
// requests. Solved counts repaired only, scrapped equipment is not a fix.
func (s *StatsService) RequesterOverview(requests []models.MaintenanceRequest, userID string) RequesterStats {
	stats := RequesterStats{}
	for _, r := range requests {
		if r.RequesterID != userID {
			continue
		}
		stats.Total++
		switch r.Status {
		case models.StatusNew:
			stats.Pending++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusRepaired:
			stats.Solved++
		}
	}
	return stats
}

type TechnicianOverview struct {
	Available  int `json:"available"`
	Assigned   int `json:"assigned"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// TechnicianOverview computes the technician dashboard: unclaimed requests
// plus the caller's own workload.
func (s *StatsService) TechnicianOverview(requests []models.MaintenanceRequest, technicianID string) TechnicianOverview {
	stats := TechnicianOverview{}
	for _, r := range requests {
		if r.Status == models.StatusNew {
			stats.Available++
		}
		if r.AssignedTechnicianID == nil || *r.AssignedTechnicianID != technicianID {
			continue
		}
		stats.Assigned++
		if r.Status == models.StatusInProgress {
			stats.InProgress++
		}
		if r.Status.IsTerminal() {
			stats.Completed++
		}
	}
	return stats
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
