package mqtt

import "fmt"

// Topic prefixes for the MCULink broker namespace.
//
// Account channels carry the relay traffic between a user session and that
// account's device sessions: mculink/accounts/{ownerId}
const (
	// TopicPrefixAccounts is the base for per-account relay channels.
	TopicPrefixAccounts = "mculink/accounts"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "mculink/system"
)

// Topics provides builders for MCULink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// AccountChannel returns the relay channel topic for one account.
// Every session belonging to the account (the user app and all of its
// devices) subscribes to this single topic.
//
// Example: mculink/accounts/usr-4f9a21b3
func (Topics) AccountChannel(ownerID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixAccounts, ownerID)
}

// SystemStatus returns the system status topic used for the LWT and
// online/offline announcements.
//
// Example: mculink/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
