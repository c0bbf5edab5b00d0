package stage

// Health reports whether a download stage can currently run, with Detail
// explaining the blocker when it cannot.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy marks the named stage as ready to process jobs.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy marks the named stage as blocked, e.g. when a required binary is
// missing from PATH.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
