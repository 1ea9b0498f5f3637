package render

const (
	// SelectedMarker flags the selected card of a list
	SelectedMarker = "<selected>"

	barWidth = 20
)

//nolint:lll // templates
const templates = `
{{- define "tracks" -}}
{{- if not .Tracks -}}
Loading Tracks...
{{- else -}}
{{- range .Tracks }}
{{ printf "%3d" .ID }}  {{ .Name }}{{ if and $.HasSelected (eq .ID $.Selected) }}  ` + SelectedMarker + `{{ end }}
{{- end }}
{{- end }}
{{- end -}}

{{- define "racers" -}}
{{- if not .Racers -}}
Loading Racers...
{{- else -}}
{{- range .Racers }}
{{ printf "%3d" .ID }}  {{ .DriverName }}{{ if and $.HasSelected (eq .ID $.Selected) }}  ` + SelectedMarker + `{{ end }}
     top speed: {{ .TopSpeed }}  acceleration: {{ .Acceleration }}  handling: {{ .Handling }}
{{- end }}
{{- end }}
{{- end -}}

{{- define "countdown" -}}
Race Starts In...
{{ . }}
{{- end -}}

{{- define "raceStart" -}}
Race: {{ .Track.Name | upper }}
Racers: {{ .Names | join ", " }}

{{ template "countdown" .Count }}

Directions
Click the button as fast as you can to make your racer go faster!
Press <Enter> to hit the gas pedal.
{{- end -}}

{{- define "leaderboard" -}}
Leaderboard - Race Completion
{{- range . }}
{{ .Rank }} - {{ .Name }}  {{ bar .Completion }} {{ .Completion }}%
{{- end }}
{{- end -}}

{{- define "results" -}}
Race Results
{{- range . }}
{{ ordinal .Rank | printf "%4s" }}  {{ .Name }}  {{ bar .Completion }} {{ .Completion }}%
{{- end }}

Start a new race: podracer race
{{- end -}}

{{- define "createRace" -}}
{{- if and .HasTrack .HasRacer -}}
Ready to race: podracer race --track {{ .Track }} --racer {{ .Racer }}
{{- else -}}
Choose a track and a racer to create a race
{{- end -}}
{{- end -}}

{{- define "gasPedal" -}}
{{- if . -}}
>>> Press <Enter> to hit the gas pedal! <<<
{{- else -}}
Gas pedal released
{{- end -}}
{{- end -}}

{{- define "failure" -}}
Something went wrong: {{ . }}
{{- end -}}
`
