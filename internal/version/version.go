// Package version holds build metadata, set at link time with
// -ldflags "-X github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/version.Version=1.2.3".
package version

// Version is the application version.
var Version = "dev"
