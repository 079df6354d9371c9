/*
Package events provides an in-memory pub/sub event broker for session
lifecycle notifications.

The broker broadcasts session.created/started/stopped/error events to any
number of subscribers with non-blocking, best-effort delivery: a slow or
dead subscriber never backs up the publisher. Its one consumer in this
module is the C10 /api/v1/events Server-Sent-Events stream, fed by the
publish calls the Session Manager makes at each lifecycle transition. The
recovery service does not subscribe to it.

Subscribers that fall behind lose events rather than stalling the system;
this is acceptable for a notification stream but means the broker is not a
source of truth — the managed containers and their labels are.
*/
package events
