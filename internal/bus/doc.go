// Package bus provides the per-account publish/subscribe channel that relay
// sessions communicate over.
//
// Every session belonging to one account shares a single channel key (the
// account id). The bus maps each key onto one MQTT topic and fans incoming
// messages out to every local subscriber of that key, so any number of
// sessions in this process can listen on the same account channel while the
// broker sees exactly one subscription per key.
//
// Subscribe returns a Subscription whose Cancel is idempotent and releases
// only that subscriber's interest. The broker-level subscription is created
// when a key gains its first local subscriber and removed when it loses its
// last one.
//
// Published messages are delivered to all subscribers of the key, including
// subscribers in the publishing process. Callers that must not react to
// their own traffic filter by message content, not by delivery.
package bus
