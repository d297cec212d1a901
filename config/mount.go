package config

// MountOptions are the FUSE mount settings the server package translates into
// go-fuse options. No go-fuse types leak into config.
type MountOptions struct {
	Debug      bool   // go-fuse request tracing
	FsName     string // first column of /proc/mounts
	Name       string // fs subtype, shown as fuse.<Name>
	AllowOther bool   // let other users see the mount (needs user_allow_other)
}
