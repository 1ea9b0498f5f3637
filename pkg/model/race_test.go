package model

import (
	"encoding/json"
	"testing"

	"gotest.tools/v3/assert"
)

func TestStatus_Known(t *testing.T) {
	tests := []struct {
		status Status
		known  bool
	}{
		{StatusNotStarted, true},
		{"not-started", true},
		{StatusInProgress, true},
		{StatusFinished, true},
		{"paused", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.status.Known(), tt.known)
		})
	}
}

func TestRace_Decode(t *testing.T) {
	data := `{"ID":3,"Track":{"id":1,"name":"Track 1","segments":[10,20]},
	"PlayerID":2,"Cars":[{"id":2,"driver_name":"Racer 2","top_speed":500,
	"acceleration":10,"handling":10.5}],"Results":[]}`

	var r Race
	assert.NilError(t, json.Unmarshal([]byte(data), &r))
	assert.Equal(t, r.ID, 3)
	assert.Equal(t, r.Track.Name, "Track 1")
	assert.Equal(t, r.PlayerID, 2)
	assert.Equal(t, len(r.Cars), 1)
	assert.Equal(t, r.Cars[0].Handling, 10.5)
}
