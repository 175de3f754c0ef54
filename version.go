package switchboard

// Version is the release of the switchboard module.
const Version = "0.4.0"
