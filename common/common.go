package common

// PackageName is the metrics namespace and default log service tag.
const PackageName = "ddssec_engine"

// Version is set at build time with -ldflags "-X github.com/ruteri/ddssec-engine/common.Version=...".
var Version = "dev"
