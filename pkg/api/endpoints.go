package api

import "strconv"

const (
	DefaultServer = "http://localhost:8000"

	tracksEndpoint = "/api/tracks"
	carsEndpoint   = "/api/cars"
	racesEndpoint  = "/api/races"
)

func raceEndpoint(id int) string {
	return racesEndpoint + "/" + strconv.Itoa(id)
}

func startEndpoint(id int) string {
	return raceEndpoint(id) + "/start"
}

func accelerateEndpoint(id int) string {
	return raceEndpoint(id) + "/accelerate"
}
