// Package buildinfo carries version fields set with -ldflags "-X".
package buildinfo

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"service": "tripsched",
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}
