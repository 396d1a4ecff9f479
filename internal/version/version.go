package version

// Version is overridden at build time via -ldflags "-X .../version.Version=..."
var Version = "0.1.0"
