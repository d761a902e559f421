package whatsapp

import "strings"

// NormalizeNumber rewrites Argentine mobile numbers delivered by the webhook
// as 549XXXXXXXXXX to the 54XXXXXXXXXX form the Cloud API accepts as a
// recipient.
func NormalizeNumber(phone string) string {
	if rest, ok := strings.CutPrefix(phone, "549"); ok {
		return "54" + rest
	}
	return phone
}
