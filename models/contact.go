package models

// Contact is one conversation partner in the recent-contacts list.
// UnreadCount is maintained client-side only: reset when the peer becomes
// the active conversation, incremented on inbound messages for other peers.
type Contact struct {
	PeerID             int64  `json:"id"`
	DisplayName        string `json:"nickname"`
	AvatarRef          string `json:"avatar"`
	Role               int    `json:"role"`
	LastMessagePreview string `json:"last_msg"`
	LastMessageTime    string `json:"last_time"`
	UnreadCount        int    `json:"unread_count"`
}
