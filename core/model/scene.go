package model

import "time"

// Scene is one of potentially several concurrent incident foci competing
// for the same resource pool.
type Scene struct {
	ID           string     `json:"id"`
	Name         string     `json:"name,omitempty"`
	DisasterType string     `json:"disasterType"`
	Casualties   Casualties `json:"casualties"`
	Location     Location   `json:"location"`
	Primary      bool       `json:"primary"`
	ReportedAt   time.Time  `json:"reportedAt"`
}

// ScenePriority is the arbitration result for one scene.
type ScenePriority struct {
	SceneID    string             `json:"sceneId"`
	Score      float64            `json:"score"`
	Rank       int                `json:"rank"`
	Dimensions map[string]float64 `json:"dimensions"`
}
