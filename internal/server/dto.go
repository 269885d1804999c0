package server

import (
	"spycats/internal/domain"
)

// Request payloads

type CreateCatRequest struct {
	Name       string  `json:"name" minLength:"1" example:"Whiskers"`
	Experience int     `json:"experience" minimum:"0" example:"3"`
	Breed      string  `json:"breed" minLength:"1" example:"Bengal" doc:"Must match a breed name from the reference catalog"`
	Salary     float64 `json:"salary" example:"1200.5"`
}

type UpdateCatRequest struct {
	Salary float64 `json:"salary" example:"1500"`
}

type TargetRequest struct {
	Name    string `json:"name" example:"Alpha"`
	Country string `json:"country" example:"Freedonia"`
}

type CreateMissionRequest struct {
	Targets []TargetRequest `json:"targets" doc:"Between 1 and 3 targets"`
}

type AssignCatRequest struct {
	CatID int64 `json:"cat_id" example:"1"`
}

type UpdateNotesRequest struct {
	Notes string `json:"notes" example:"Seen near the harbour at dawn"`
}

// Response payloads

type CatResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Experience int     `json:"experience"`
	Breed      string  `json:"breed"`
	Salary     float64 `json:"salary"`
	MissionID  *int64  `json:"mission_id" nullable:"true"`
}

type TargetResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Notes    string `json:"notes"`
	Complete bool   `json:"complete"`
}

type MissionResponse struct {
	ID       int64            `json:"id"`
	Complete bool             `json:"complete"`
	CatID    *int64           `json:"cat_id" nullable:"true"`
	Targets  []TargetResponse `json:"targets"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func catResponse(c domain.Cat) CatResponse {
	return CatResponse{
		ID:         c.ID,
		Name:       c.Name,
		Experience: c.Experience,
		Breed:      c.Breed,
		Salary:     c.Salary,
		MissionID:  c.MissionID,
	}
}

func mapCats(items []domain.Cat) []CatResponse {
	res := make([]CatResponse, 0, len(items))
	for _, c := range items {
		res = append(res, catResponse(c))
	}
	return res
}

func missionResponse(m domain.Mission) MissionResponse {
	targets := make([]TargetResponse, 0, len(m.Targets))
	for _, t := range m.Targets {
		targets = append(targets, TargetResponse{
			ID:       t.ID,
			Name:     t.Name,
			Country:  t.Country,
			Notes:    t.Notes,
			Complete: t.Complete,
		})
	}
	return MissionResponse{
		ID:       m.ID,
		Complete: m.Complete,
		CatID:    m.CatID,
		Targets:  targets,
	}
}

func mapMissions(items []domain.Mission) []MissionResponse {
	res := make([]MissionResponse, 0, len(items))
	for _, m := range items {
		res = append(res, missionResponse(m))
	}
	return res
}

func newTargets(in []TargetRequest) []domain.NewTarget {
	out := make([]domain.NewTarget, 0, len(in))
	for _, t := range in {
		out = append(out, domain.NewTarget{Name: t.Name, Country: t.Country})
	}
	return out
}
