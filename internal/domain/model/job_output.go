package model

// JobOutput is reported by an executable job that exited on its own.
type JobOutput struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}
