package version

// Version is the current version of dataops.
// Can be overridden at build time with -ldflags "-X ...version.Version=..."
var Version = "1.4.0"

// Name is the application name.
const Name = "dataops"

// Description is a short description of the application.
const Description = "Tenant data export, import and backup tooling"
