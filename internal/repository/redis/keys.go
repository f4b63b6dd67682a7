package redis

import "fmt"

const ns = "seatflow:v1"

func KeySessionAvailability(sessionID int64) string {
	return fmt.Sprintf("%s:session:%d:availability", ns, sessionID)
}

func KeySessionWaitlist(sessionID int64) string {
	return fmt.Sprintf("%s:session:%d:waitlist", ns, sessionID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelSessionsChanged() string {
	return ns + ":sessions:changed"
}
