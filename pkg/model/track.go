package model

type Track struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Segments []int  `json:"segments,omitempty"`
}
