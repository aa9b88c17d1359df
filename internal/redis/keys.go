package redisx

import "fmt"

const ns = "tabgo:v1"

func KeyTableBoard() string {
	return ns + ":tables:board"
}

func KeyMenuItem(id string) string {
	return fmt.Sprintf("%s:menu:%s", ns, id)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemLine(checkID, idemKey string) string {
	return fmt.Sprintf("%s:idem:lines:%s:%s", ns, checkID, idemKey)
}

func KeyTrustedDevices() string {
	return ns + ":devices:trusted"
}

func ChannelChecksChanged() string {
	return ns + ":checks:changed"
}
