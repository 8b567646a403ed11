package model

// ClientVersion is the studioport release version. It is reported to
// the relay during authentication and printed by the version command.
const ClientVersion = "0.4.1"
