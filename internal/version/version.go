package version

// Version is the current release of the crawler, overridable at build time
// with -ldflags "-X github.com/alvmarrod/ref-weaver/internal/version.Version=..."
var Version = "0.1.0"
