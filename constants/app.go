package constants

// Version is stamped at build time with -ldflags "-X .../constants.Version=...".
var Version = "dev"
