package domain

// Recipient is one device entitled to receive a notification. ID is the
// owning profile id; Token is the FCM device token. The directory layer
// guarantees Token is never empty.
type Recipient struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}
