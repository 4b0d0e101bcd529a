package models

import "time"

// LoginLog records one operator console session
type LoginLog struct {
	ID         string     `json:"id"`
	AdminID    string     `json:"admin_id"`
	LoginTime  time.Time  `json:"login_time"`
	LogoutTime *time.Time `json:"logout_time,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
}
