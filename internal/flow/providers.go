package flow

// connections maps public provider names to IdP connection identifiers.
// The table is closed: unknown names are rejected, never defaulted.
var connections = map[string]string{
	"google": "google-oauth2",
}

// Providers lists the provider names the gateway can begin a flow for, in a
// stable order for the login chooser page.
func Providers() []string {
	return []string{"google"}
}
