package auth

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8"`
	DeviceID string `json:"device_id" binding:"required"`
}

type LoginRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required"`
	DeviceID     string `json:"device_id" binding:"required"`
	RevokeOthers bool   `json:"revoke_others"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	DeviceID     string `json:"device_id" binding:"required"`
}

type LogoutRequest struct {
	DeviceID   string `json:"device_id"`
	AllDevices bool   `json:"all_devices"`
}

type SetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

type UserPublic struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
